package delta

const (
	NameAverage      = "average"
	NameLargerParent = "larger"
)

// Average measures the merge against the mean of both parents:
// 2*merged - anchor - partner.
type Average struct{}

func (Average) Name() string { return NameAverage }

func (Average) Delta(in Inputs) float64 {
	return 2*in.Merged - in.Anchor - in.Partner
}

// LargerParent measures the merge against the parent with more nodes.
// On a size tie the partner is the reference.
type LargerParent struct{}

func (LargerParent) Name() string { return NameLargerParent }

func (LargerParent) Delta(in Inputs) float64 {
	if in.AnchorSize > in.PartnerSize {
		return in.Merged - in.Anchor
	}
	return in.Merged - in.Partner
}
