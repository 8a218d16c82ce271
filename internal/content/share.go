package content

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

type shareEffects struct {
	Blur       float64 `json:"blur,omitempty"`
	Vignette   float64 `json:"vignette,omitempty"`
	SpeechRate float64 `json:"speechRate,omitempty"`
}

// ShareData - то, что попадает в ссылку: текст и стиль, без медиа и аудио.
type ShareData struct {
	Text     string        `json:"text"`
	Title    string        `json:"title,omitempty"`
	Category Category      `json:"category"`
	Font     string        `json:"font,omitempty"`
	Theme    string        `json:"theme,omitempty"`
	Effects  *shareEffects `json:"effects,omitempty"`
}

// ShareLink формирует ссылку вида base?share=<base64(json)>.
func ShareLink(base string, job *Job) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("share base url: %w", err)
	}

	data := ShareData{
		Text:     job.Quote.Text,
		Title:    job.Quote.Title,
		Category: job.Quote.Category,
		Font:     job.Font,
		Theme:    job.Theme,
		Effects: &shareEffects{
			Blur:       job.Effects.Blur,
			Vignette:   job.Effects.Vignette,
			SpeechRate: job.Effects.SpeechRate,
		},
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("share", base64.StdEncoding.EncodeToString(raw))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func ParseShareLink(link string) (*ShareData, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, err
	}
	param := u.Query().Get("share")
	if param == "" {
		return nil, fmt.Errorf("share link has no share parameter")
	}
	raw, err := base64.StdEncoding.DecodeString(param)
	if err != nil {
		return nil, fmt.Errorf("share payload: %w", err)
	}
	var data ShareData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("share payload: %w", err)
	}
	return &data, nil
}
