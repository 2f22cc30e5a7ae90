package domain

type OperatorID string

type Operator struct {
	ID        OperatorID
	Name      string
	AvatarURL string
}

type LocationSettings struct {
	HintsEnabled bool
}

const (
	MinOperatorRating = 1
	MaxOperatorRating = 5
)

func ValidOperatorRating(rating int) bool {
	return rating >= MinOperatorRating && rating <= MaxOperatorRating
}

// OperatorRatingToServer converts a 1..5 rating into the server's -2..2 scale.
func OperatorRatingToServer(rating int) int {
	return rating - 3
}

// OperatorRatingFromServer converts the server's -2..2 scale into 1..5. Values
// outside the server range report ok=false.
func OperatorRatingFromServer(value int) (int, bool) {
	rating := value + 3
	if !ValidOperatorRating(rating) {
		return 0, false
	}
	return rating, true
}

func sameOperator(a, b *Operator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// OperatorChanged reports whether the current operator differs between two
// snapshots.
func OperatorChanged(previous, current *Operator) bool {
	return !sameOperator(previous, current)
}
