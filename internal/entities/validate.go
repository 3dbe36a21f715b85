package entities

import (
	"errors"
	"fmt"
	"strings"
)

func validateID(kind string, id int64, idStr string) error {
	if FormatID(id) != idStr {
		return fmt.Errorf("%s id %d does not match id_str %q", kind, id, idStr)
	}
	return nil
}

func validateLinks(kind, idStr string, links []Link) error {
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if _, ok := seen[l.TrackingURL]; ok {
			return fmt.Errorf("%s %s has duplicate link %q", kind, idStr, l.TrackingURL)
		}
		seen[l.TrackingURL] = struct{}{}
	}
	return nil
}

func (r AccountRef) Validate() error {
	return validateID("account ref", r.ID, r.IDStr)
}

func (a Account) Validate() error {
	errs := []error{validateID("account", a.ID, a.IDStr)}
	if a.Username == "" {
		errs = append(errs, fmt.Errorf("account %s has no username", a.IDStr))
	}
	errs = append(errs, validateLinks("account", a.IDStr, a.DescriptionLinks))
	return errors.Join(errs...)
}

func (m Media) Validate() error {
	for i, v := range m.Videos {
		if len(v.Variants) == 0 {
			return fmt.Errorf("video %d has no variants", i)
		}
		for _, variant := range v.Variants {
			if variant.URL == "" || variant.ContentType == "" {
				return fmt.Errorf("video %d has an incomplete variant", i)
			}
		}
	}
	return nil
}

// Validate checks the invariants of a post and, recursively, of everything it owns.
func (p Post) Validate() error {
	errs := []error{
		validateID("post", p.ID, p.IDStr),
		validateID("conversation", p.ConversationID, p.ConversationIDStr),
		validateLinks("post", p.IDStr, p.Links),
	}
	if !strings.Contains(p.URL, p.IDStr) {
		errs = append(errs, fmt.Errorf("post %s has url %q that doesn't contain its id", p.IDStr, p.URL))
	}
	if err := p.Author.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("author: %w", err))
	}
	if p.InReplyToID != nil {
		errs = append(errs, validateID("in reply to", *p.InReplyToID, p.InReplyToIDStr))
	}
	if p.InReplyToAccount != nil {
		errs = append(errs, p.InReplyToAccount.Validate())
	}
	for _, m := range p.MentionedAccounts {
		errs = append(errs, m.Validate())
	}
	if p.Media != nil {
		errs = append(errs, p.Media.Validate())
	}
	if p.QuotedPost != nil {
		if p.QuotedPost.ID == p.ID {
			errs = append(errs, fmt.Errorf("post %s quotes itself", p.IDStr))
		}
		if err := p.QuotedPost.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("quoted: %w", err))
		}
	}
	if p.RepostedPost != nil {
		if !strings.HasSuffix(p.RawContent, p.RepostedPost.RawContent) {
			errs = append(errs, fmt.Errorf("post %s content doesn't end with reposted content", p.IDStr))
		}
		if err := p.RepostedPost.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("reposted: %w", err))
		}
	}
	return errors.Join(errs...)
}
