package classifier

import "fmt"

// Label is a leaf health class.
type Label int

const (
	Healthy  Label = 0
	Diseased Label = 1
)

// ClassDirs maps each label to the dataset subdirectory holding its images.
var ClassDirs = [...]string{
	Healthy:  "healthy",
	Diseased: "diseased",
}

// String returns "Healthy" or "Diseased".
func (l Label) String() string {
	switch l {
	case Healthy:
		return "Healthy"
	case Diseased:
		return "Diseased"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Dir returns the dataset subdirectory name for l.
func (l Label) Dir() string {
	return ClassDirs[l]
}
