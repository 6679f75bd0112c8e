package followers

import (
	"encoding/json"
	"strings"
)

// RawRecord is the wire shape of one follower profile as emitted by the
// filtering backend. Fields come and go between batches, and tags may be
// either a JSON array or a comma-separated string, so everything optional
// stays loose here and gets normalized before it touches the store.
type RawRecord struct {
	UserID           string          `json:"user_id"`
	ID               string          `json:"id"`
	ScreenName       string          `json:"screen_name"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Location         string          `json:"location"`
	Website          string          `json:"website"`
	CreatedAt        string          `json:"created_at"`
	FollowersCount   int             `json:"followers_count"`
	FriendsCount     int             `json:"friends_count"`
	StatusesCount    int             `json:"statuses_count"`
	MediaCount       int             `json:"media_count"`
	BlueVerified     bool            `json:"blue_verified"`
	BusinessAccount  bool            `json:"business_account"`
	Tags             json.RawMessage `json:"tags,omitempty"`
	AIAnalysisNotes  string          `json:"ai_analysis_notes"`
	BotScore         *float64        `json:"bot_score,omitempty"`
	PromptMatchScore *float64        `json:"prompt_match_score,omitempty"`
}

// Record is the canonical, normalized follower profile. Once merged into a
// Store it is never mutated again.
type Record struct {
	UserID           string   `json:"user_id,omitempty"`
	ID               string   `json:"id,omitempty"`
	ScreenName       string   `json:"screen_name"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Location         string   `json:"location,omitempty"`
	Website          string   `json:"website,omitempty"`
	CreatedAt        string   `json:"created_at,omitempty"`
	FollowersCount   int      `json:"followers_count"`
	FriendsCount     int      `json:"friends_count"`
	StatusesCount    int      `json:"statuses_count"`
	MediaCount       int      `json:"media_count"`
	BlueVerified     bool     `json:"blue_verified"`
	BusinessAccount  bool     `json:"business_account"`
	Tags             []string `json:"tags,omitempty"`
	AIAnalysisNotes  string   `json:"ai_analysis_notes,omitempty"`
	BotScore         *float64 `json:"bot_score,omitempty"`
	PromptMatchScore *float64 `json:"prompt_match_score,omitempty"`
}

// Identity returns the dedup key: user_id when present, id otherwise.
func (r Record) Identity() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.ID
}

// Normalize converts a wire record into its canonical form. A record with
// neither user_id nor id has no identity and is rejected.
func Normalize(raw RawRecord) (Record, error) {
	if raw.UserID == "" && raw.ID == "" {
		return Record{}, ErrNoIdentity
	}
	return Record{
		UserID:           raw.UserID,
		ID:               raw.ID,
		ScreenName:       raw.ScreenName,
		Name:             raw.Name,
		Description:      raw.Description,
		Location:         raw.Location,
		Website:          raw.Website,
		CreatedAt:        raw.CreatedAt,
		FollowersCount:   clampCount(raw.FollowersCount),
		FriendsCount:     clampCount(raw.FriendsCount),
		StatusesCount:    clampCount(raw.StatusesCount),
		MediaCount:       clampCount(raw.MediaCount),
		BlueVerified:     raw.BlueVerified,
		BusinessAccount:  raw.BusinessAccount,
		Tags:             normalizeTags(raw.Tags),
		AIAnalysisNotes:  raw.AIAnalysisNotes,
		BotScore:         raw.BotScore,
		PromptMatchScore: raw.PromptMatchScore,
	}, nil
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// normalizeTags accepts either a JSON array of strings or a single
// comma-separated string and returns trimmed, non-empty tags.
func normalizeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var parts []string
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		parts = list
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parts = strings.Split(s, ",")
	}

	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
