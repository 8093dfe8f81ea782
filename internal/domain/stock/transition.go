package stock

// Classification is the verdict of the transition validator
type Classification string

const (
	ClassNoOp       Classification = "no_op"
	ClassNormal     Classification = "normal"
	ClassCorrection Classification = "correction"
)

// normalFlow is the fixed table of legal forward edges outside the prune
// chain. Prune chain edges are derived from pruneRank.
var normalFlow = map[Status][]Status{
	StatusInZone:       {StatusSelectedForDig, StatusDigOrdered},
	StatusDigOrdered:   {StatusDug},
	StatusDug:          {StatusReadyForSale},
	StatusReadyForSale: {StatusReserved},
	StatusReserved:     {StatusShipped, StatusPlanted, StatusSold},
}

// Classify categorizes a requested status change. It is pure and never
// consults the ledger.
func Classify(current, requested Status) Classification {
	if current == requested {
		return ClassNoOp
	}
	if isNormalEdge(current, requested) {
		return ClassNormal
	}
	return ClassCorrection
}

func isNormalEdge(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if to.IsRootPrune() && (from == StatusSelectedForDig || from.IsRootPrune()) {
		return pruneRank(to) > pruneRank(from)
	}
	for _, s := range normalFlow[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NormalTargets lists the statuses reachable from current without a correction
func NormalTargets(current Status) []Status {
	out := make([]Status, 0, 4)
	for _, s := range allStatuses {
		if isNormalEdge(current, s) {
			out = append(out, s)
		}
	}
	return out
}
