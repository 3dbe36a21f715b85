package entities

type Media struct {
	Photos   []Photo
	Videos   []Video
	Animated []Animated
}

// Empty is true when there is nothing worth emitting.
func (m Media) Empty() bool {
	return len(m.Photos) == 0 && len(m.Videos) == 0 && len(m.Animated) == 0
}

type Photo struct {
	URL string
}

type Video struct {
	ThumbnailURL string
	// Duration is in milliseconds.
	Duration int64
	Views    *int64
	Variants []Variant
}

type Variant struct {
	URL         string
	Bitrate     int64
	ContentType string
}

type Animated struct {
	ThumbnailURL string
	VideoURL     string
}
