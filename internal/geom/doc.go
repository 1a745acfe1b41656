// Package geom holds the axis-aligned bounding box maths shared by the
// tracker and the occupancy engine.
//
// Coordinates are image pixels with the origin at the top-left corner.
// geom imports no other package of this module.
package geom
