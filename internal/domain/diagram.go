package domain

import "fmt"

// BoundingBox delimits a rectangular image region in normalized 0-1
// coordinates with X1 < X2 and Y1 < Y2.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// Valid reports whether the box describes a non-degenerate region.
func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.3f,%.3f,%.3f,%.3f)", b.X1, b.Y1, b.X2, b.Y2)
}

// VerificationState tracks a diagram record through the verification pass.
type VerificationState int

const (
	Unverified VerificationState = iota
	Confirmed
	Corrected
)

func (s VerificationState) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Corrected:
		return "corrected"
	}
	return "unverified"
}

// Diagram is one located diagram inside a rendered page. Description starts
// as the detection pass placeholder and is refined by the description pass.
type Diagram struct {
	Page        int
	BBox        BoundingBox
	Name        string
	Description string
	State       VerificationState
}

// Filename is the on-disk name for the cropped diagram image.
func (d Diagram) Filename() string { return d.Name + ".png" }
