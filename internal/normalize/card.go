package normalize

import (
	"fmt"
	"strings"

	"xstream-backend/internal/entities"
)

// cardValues is the `binding_values` of a card keyed by name.
type cardValues map[string]object

func readCardValues(card object) cardValues {
	values := cardValues{}
	switch bindings := card["binding_values"].(type) {
	case []any:
		for _, item := range bindings {
			key := getString(item, "key")
			value := getObject(item, "value")
			if key != "" && value != nil {
				values[key] = value
			}
		}
	case object:
		// older envelopes send a map instead of a list of pairs
		for key, value := range bindings {
			if obj, ok := value.(object); ok {
				values[key] = obj
			}
		}
	}
	return values
}

func (v cardValues) str(key string) string {
	return getString(v[key], "string_value")
}

func (v cardValues) boolean(key string) bool {
	return getBool(v[key], "boolean_value")
}

func (v cardValues) photo(keys ...string) *entities.Photo {
	for _, key := range keys {
		if url := getString(v[key], "image_value.url"); url != "" {
			return &entities.Photo{URL: url}
		}
	}
	return nil
}

type cardParser func(values cardValues) (entities.Card, error)

// cardParsers maps the upstream card name (without any numeric `<id>:` prefix) to the
// constructor of its variant. Names missing from the table become entities.UnknownCard.
var cardParsers = map[string]cardParser{
	"summary":               parseSummaryCard,
	"summary_large_image":   parseSummaryCard,
	"player":                parseSummaryCard,
	"poll2choice_text_only": parsePollCard,
	"poll3choice_text_only": parsePollCard,
	"poll4choice_text_only": parsePollCard,
	"poll2choice_image":     parsePollCard,
	"poll3choice_image":     parsePollCard,
	"poll4choice_image":     parsePollCard,
	"broadcast":             parseBroadcastCard,
	"audiospace":            parseAudiospaceCard,
}

func cardKind(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (n Normalizer) card(obj object, ownerID string) entities.Card {
	card := getObject(obj, "card.legacy")
	if card == nil {
		// older envelopes put the card payload directly under `card`
		card = getObject(obj, "card")
	}
	name := getString(card, "name")
	if name == "" {
		return nil
	}
	values := readCardValues(card)

	parse, ok := cardParsers[cardKind(name)]
	if !ok {
		n.tel.ReportDebug("unknown card type", name, ownerID)
		url := values.str("card_url")
		if url == "" {
			url = getString(card, "url")
		}
		return entities.UnknownCard{Name: name, URL: url}
	}

	parsed, err := parse(values)
	if err != nil {
		n.degraded("card", ownerID, fmt.Errorf("%s: %w", name, err))
		return nil
	}
	return parsed
}

func parseSummaryCard(values cardValues) (entities.Card, error) {
	return entities.SummaryCard{
		Title:       values.str("title"),
		Description: values.str("description"),
		VanityURL:   values.str("vanity_url"),
		URL:         values.str("card_url"),
		Photo: values.photo(
			"thumbnail_image_original",
			"photo_image_full_size_original",
			"summary_photo_image_original",
			"thumbnail_image_large",
		),
	}, nil
}

func parsePollCard(values cardValues) (entities.Card, error) {
	card := entities.PollCard{
		Finished: values.boolean("counts_are_final"),
	}
	for i := 1; ; i++ {
		label := values.str(fmt.Sprintf("choice%d_label", i))
		if label == "" {
			break
		}
		option := entities.PollOption{Label: label}
		if raw := values.str(fmt.Sprintf("choice%d_count", i)); raw != "" {
			count, ok := toInt(raw)
			if !ok {
				return nil, fmt.Errorf("choice %d has a non numeric count %q", i, raw)
			}
			option.VotesCount = count
		}
		card.Options = append(card.Options, option)
	}
	if len(card.Options) == 0 {
		return nil, fmt.Errorf("poll without choices")
	}
	return card, nil
}

func parseBroadcastCard(values cardValues) (entities.Card, error) {
	url := values.str("broadcast_url")
	if url == "" {
		return nil, fmt.Errorf("broadcast without url")
	}
	return entities.BroadcastCard{
		Title: values.str("broadcast_title"),
		URL:   url,
		Photo: values.photo("broadcast_thumbnail_original", "broadcast_thumbnail"),
	}, nil
}

func parseAudiospaceCard(values cardValues) (entities.Card, error) {
	url := values.str("card_url")
	if url == "" {
		return nil, fmt.Errorf("audiospace without url")
	}
	return entities.AudiospaceCard{URL: url}, nil
}
