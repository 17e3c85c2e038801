// Package textutil provides the text helpers shared by the parser, matcher, and
// path planner: title normalization, title similarity, and filename
// sanitization.
//
// Similarity blends two views of a title pair. A normalized edit distance
// (github.com/xrash/smetrics) catches typos and punctuation drift, while a
// token cosine over term-frequency fingerprints tolerates reordered or extra
// words. The larger of the two wins.
package textutil
