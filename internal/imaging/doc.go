// Package imaging provides the raster-side building blocks of the relief pipeline.
//
// This package owns the types that flow between the quantizer, the despeckle pass
// and the relief builder, plus the image plumbing around them: decoding source
// artwork, fitting it to the board resolution, optional smoothing, and rendering
// index grids back into previewable images.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel, column)
//   - Y: vertical position (0 = topmost pixel, row)
//
// Index grids are stored row-major, so the cell at (x, y) lives at y*Width + x.
//
// # Board Resolution
//
// The physical board footprint (millimetres) is converted to a pixel grid with
// the fixed PixelsPerMM constant. Every raster that enters the quantizer has
// already been fitted to that resolution by FitToBoard.
//
// # Color Representation
//
// Palette colors are opaque 8-bit RGB triples (RGBColor). Alpha is dropped when
// sampling source rasters; only the straight (non-premultiplied) RGB bytes are
// used. Hex strings use the 6-character "#RRGGBB" form.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. IndexGrid and Palette values are
// treated as immutable once produced; functions that transform a grid always
// return a new one.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Rasters that cannot be decoded or contain zero pixels (ErrEmptyImage)
//   - Board dimensions that are not positive
//   - Encoding errors during image output
package imaging
