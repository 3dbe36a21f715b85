package normalize

import (
	"fmt"

	"xstream-backend/internal/entities"
)

func (n Normalizer) media(obj object, ownerID string) *entities.Media {
	out := entities.Media{}
	for _, item := range getList(obj, "extended_entities.media") {
		kind := getString(item, "type")
		switch kind {
		case "photo":
			url := getString(item, "media_url_https")
			if url == "" {
				n.degraded("media.photo", ownerID, fmt.Errorf("photo without url"))
				continue
			}
			out.Photos = append(out.Photos, entities.Photo{URL: url})
		case "video":
			video, err := parseVideo(item)
			if err != nil {
				n.degraded("media.video", ownerID, err)
				continue
			}
			out.Videos = append(out.Videos, video)
		case "animated_gif":
			animated, err := parseAnimated(item)
			if err != nil {
				n.degraded("media.animated", ownerID, err)
				continue
			}
			out.Animated = append(out.Animated, animated)
		default:
			n.degraded("media", ownerID, fmt.Errorf("unknown media type %q", kind))
		}
	}
	if out.Empty() {
		return nil
	}
	return &out
}

// parseVideo keeps only the variants that are fully described, upstream also lists
// streaming playlists without a bitrate which are not downloadable as is.
func parseVideo(item any) (entities.Video, error) {
	video := entities.Video{
		ThumbnailURL: getString(item, "media_url_https"),
	}
	duration, ok := getInt(item, "video_info.duration_millis")
	if !ok {
		return entities.Video{}, fmt.Errorf("video without duration")
	}
	video.Duration = duration
	if views, ok := getInt(item, "mediaStats.viewCount"); ok {
		video.Views = &views
	}

	for _, raw := range getList(item, "video_info.variants") {
		bitrate, ok := getInt(raw, "bitrate")
		if !ok {
			continue
		}
		variant := entities.Variant{
			URL:         getString(raw, "url"),
			Bitrate:     bitrate,
			ContentType: getString(raw, "content_type"),
		}
		if variant.URL == "" || variant.ContentType == "" {
			continue
		}
		video.Variants = append(video.Variants, variant)
	}
	if len(video.Variants) == 0 {
		return entities.Video{}, fmt.Errorf("video without usable variants")
	}
	return video, nil
}

func parseAnimated(item any) (entities.Animated, error) {
	variants := getList(item, "video_info.variants")
	if len(variants) == 0 {
		return entities.Animated{}, fmt.Errorf("animated gif without variants")
	}
	videoURL := getString(variants[0], "url")
	if videoURL == "" {
		return entities.Animated{}, fmt.Errorf("animated gif without url")
	}
	return entities.Animated{
		ThumbnailURL: getString(item, "media_url_https"),
		VideoURL:     videoURL,
	}, nil
}
