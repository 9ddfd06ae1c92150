// Package quantize reduces a full-color raster to a four-entry filament palette
// and a per-pixel palette index grid.
//
// # Algorithm
//
// Quantize runs in four stages:
//
//  1. K-Means++ seeding: the first centroid is a uniformly random pixel; every
//     following centroid is drawn with probability proportional to the squared
//     RGB distance to the nearest centroid chosen so far.
//
//  2. Lloyd iteration: pixels are assigned to their nearest centroid, centroids
//     move to the rounded mean of their members. Iteration stops after
//     MaxIterations rounds or as soon as no rounded centroid moves.
//
//  3. Representative selection: a cluster mean rarely matches a printable,
//     vivid color, so every cluster is represented by one of its real pixels,
//     chosen by minimising
//
//     distance² − saturation·SaturationWeight − extreme·ExtremeWeight
//
//     where extreme is 1 for near-black or near-white pixels and 0 otherwise.
//
//  4. Frequency ordering: clusters are sorted by population, most populous
//     first, and the grid is remapped so index 0 is the dominant (base) color.
//
// # Determinism
//
// The only randomness is the seeding step, which draws from Options.Source.
// Passing a seeded source (for example rand.NewPCG(1, 2)) makes the palette and
// grid byte-identical across runs.
//
// # Degenerate Clusters
//
// When the source has fewer than four distinct colors some clusters end with no
// members. That is not an error: the cluster keeps its last mean as its palette
// color and its index is listed in Result.Degenerate.
package quantize
