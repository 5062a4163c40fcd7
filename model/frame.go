package model

// Image is a tightly packed RGB image, three bytes per pixel, row-major.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

func NewImage(width, height int) Image {
	return Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

type Landmark struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Hand is one detected hand. Landmarks are normalized image coordinates,
// WorldLandmarks are metric coordinates around the hand's centre.
type Hand struct {
	Label          string     `json:"label"`
	Score          float32    `json:"score"`
	Landmarks      []Landmark `json:"landmarks"`
	WorldLandmarks []Landmark `json:"worldLandmarks"`
}

type Detection struct {
	Hands []Hand `json:"hands"`
}

func (d *Detection) Empty() bool {
	return d == nil || len(d.Hands) == 0
}

// Measurement is one exported row: a single landmark of a single hand in a
// single frame.
type Measurement struct {
	Frame         uint64  `json:"frame"`
	Timestamp     int64   `json:"timestamp"`
	HandIndex     int     `json:"handIndex"`
	HandLabel     string  `json:"handLabel"`
	HandScore     float32 `json:"handScore"`
	LandmarkIndex int     `json:"landmarkIndex"`
	X             float32 `json:"x"`
	Y             float32 `json:"y"`
	Z             float32 `json:"z"`
	WorldX        float32 `json:"worldX"`
	WorldY        float32 `json:"worldY"`
	WorldZ        float32 `json:"worldZ"`
}

// HandLabel follows the capture rig convention: the first reported hand is
// exported as left, every other one as right.
func HandLabel(handIndex int) string {
	if handIndex == 0 {
		return "left"
	}
	return "right"
}

// Measurements projects a detection into export rows. Landmarks without a
// world counterpart get zero world coordinates.
func Measurements(frame uint64, timestamp int64, det *Detection) []Measurement {
	if det.Empty() {
		return nil
	}

	var rows []Measurement
	for h, hand := range det.Hands {
		for l, lm := range hand.Landmarks {
			row := Measurement{
				Frame:         frame,
				Timestamp:     timestamp,
				HandIndex:     h,
				HandLabel:     HandLabel(h),
				HandScore:     hand.Score,
				LandmarkIndex: l,
				X:             lm.X,
				Y:             lm.Y,
				Z:             lm.Z,
			}
			if l < len(hand.WorldLandmarks) {
				w := hand.WorldLandmarks[l]
				row.WorldX, row.WorldY, row.WorldZ = w.X, w.Y, w.Z
			}
			rows = append(rows, row)
		}
	}
	return rows
}
