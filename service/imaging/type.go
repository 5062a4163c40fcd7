package imaging

import "github.com/khaledhikmat/handpose-go/model"

// IService turns an RGB frame into the encoded still that replaces the raw
// file. Hands, when present, are drawn on top.
type IService interface {
	Render(img model.Image, hands []model.Hand, quality int) ([]byte, error)
}

// HandConnections are the landmark pairs joined when a hand is drawn.
var HandConnections = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 4}, // thumb
	{0, 5}, {5, 6}, {6, 7}, {7, 8}, // index
	{5, 9}, {9, 10}, {10, 11}, {11, 12}, // middle
	{9, 13}, {13, 14}, {14, 15}, {15, 16}, // ring
	{13, 17}, {0, 17}, {17, 18}, {18, 19}, {19, 20}, // pinky and palm
}
