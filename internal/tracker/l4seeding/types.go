package l4seeding

// Link is a stable handle into the event's flat spacepoint collection.
type Link = uint32

// Doublet is a compatible (middle, neighbour) spacepoint pair. Which side
// the neighbour sits on is implied by the buffer it lives in.
type Doublet struct {
	Middle Link
	Other  Link
}

// DoubletCounter summarises one middle candidate's compatible neighbours;
// its counts size the doublet buffers before any doublet is materialised.
type DoubletCounter struct {
	Middle  Link
	Bottoms uint32
	Tops    uint32
}

// Triplet is a compatible (bottom, middle, top) combination with its derived
// circle parameters. Weight starts as the impact-parameter penalty and is
// adjusted by the weight-updating pass.
type Triplet struct {
	Bottom, Middle, Top Link
	Curvature           float64 // signed inverse helix diameter
	Weight              float64
	ZVertex             float64
}

// TripletCounter locates one middle candidate's triplets in the shared
// triplet buffer: First is the offset of its contiguous range, Count its
// exact length from the counting pass.
type TripletCounter struct {
	Middle Link
	First  uint32
	Count  uint32
}

// Seed is the pipeline's final artifact: three spacepoint links with the
// selected triplet's weight and fitted z-vertex.
type Seed struct {
	Bottom, Middle, Top Link
	Weight              float64
	ZVertex             float64
}

// Stats reports per-stage cardinalities and the truncation diagnostics of
// the bounded filter scratch buffers. Truncations are counted here but
// never alter results.
type Stats struct {
	MiddleCandidates int
	BottomDoublets   int
	TopDoublets      int
	Triplets         int
	Seeds            int

	TruncatedWeightGroups int64
	TruncatedSelections   int64
}
