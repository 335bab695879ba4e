package workflow

import "errors"

// ErrDoubleGeoNear is returned by MakeGeoNear when the source chain
// already contains a GeoNear. Chaining two GeoNears in one pipeline is
// unspecified upstream; this implementation rejects it rather than
// silently picking one.
var ErrDoubleGeoNear = errors.New("workflow: GeoNear cannot be chained over another GeoNear")

// ErrEmptyFoldLeftTails is returned by MakeFoldLeft when called with no
// tails — FoldLeft is defined as head plus a non-empty list of tails.
var ErrEmptyFoldLeftTails = errors.New("workflow: FoldLeft requires at least one tail")

// ErrEmptyJoinSources is returned by MakeJoin when called with no
// sources.
var ErrEmptyJoinSources = errors.New("workflow: Join requires at least one source")
