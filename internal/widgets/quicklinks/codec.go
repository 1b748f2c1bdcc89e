package quicklinks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire shapes mirror the persisted JSON payload. LastUsed travels as an
// RFC 3339 string so payloads stay readable and portable across stores.

type linkWire struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Clicks   int    `json:"clicks"`
	LastUsed string `json:"lastUsed,omitempty"`
}

type sessionWire struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Links []linkWire `json:"links"`
}

type dataWire struct {
	Version         int           `json:"version"`
	Title           string        `json:"title"`
	MaxLinks        int           `json:"maxLinks"`
	OpenInNewTab    bool          `json:"openInNewTab"`
	ShowCategories  bool          `json:"showCategories"`
	Sessions        []sessionWire `json:"sessions"`
	ActiveSessionID string        `json:"activeSessionId"`
	Links           []linkWire    `json:"links,omitempty"`
}

func linkToWire(link Link) linkWire {
	wire := linkWire{
		ID:       link.ID,
		Title:    link.Title,
		URL:      link.URL,
		Category: string(link.Category),
		Clicks:   link.Clicks,
	}
	if link.LastUsed != nil {
		wire.LastUsed = link.LastUsed.UTC().Format(time.RFC3339Nano)
	}
	return wire
}

func linkFromWire(wire linkWire) (Link, error) {
	link := Link{
		ID:       wire.ID,
		Title:    wire.Title,
		URL:      wire.URL,
		Category: Category(wire.Category),
		Clicks:   wire.Clicks,
	}
	if wire.LastUsed != "" {
		lastUsed, err := time.Parse(time.RFC3339Nano, wire.LastUsed)
		if err != nil {
			return Link{}, fmt.Errorf("parse lastUsed for link %q: %w", wire.ID, err)
		}
		link.LastUsed = &lastUsed
	}
	return link, nil
}

// Encode serializes data to its JSON wire form.
func Encode(data Data) ([]byte, error) {
	wire := dataWire{
		Version:         data.Version,
		Title:           data.Title,
		MaxLinks:        data.MaxLinks,
		OpenInNewTab:    data.OpenInNewTab,
		ShowCategories:  data.ShowCategories,
		ActiveSessionID: data.ActiveSessionID,
		Sessions:        make([]sessionWire, len(data.Sessions)),
	}
	for i, session := range data.Sessions {
		links := make([]linkWire, len(session.Links))
		for j, link := range session.Links {
			links[j] = linkToWire(link)
		}
		wire.Sessions[i] = sessionWire{ID: session.ID, Name: session.Name, Links: links}
	}
	for _, link := range data.LegacyLinks {
		wire.Links = append(wire.Links, linkToWire(link))
	}
	return json.Marshal(wire)
}

// Decode parses a JSON payload. Pre-session payloads that carry only a
// flat links array decode with Sessions empty and LegacyLinks populated;
// the model wraps them on load.
func Decode(payload []byte) (Data, error) {
	var wire dataWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Data{}, fmt.Errorf("decode quicklinks payload: %w", err)
	}
	data := Data{
		Version:         wire.Version,
		Title:           wire.Title,
		MaxLinks:        wire.MaxLinks,
		OpenInNewTab:    wire.OpenInNewTab,
		ShowCategories:  wire.ShowCategories,
		ActiveSessionID: wire.ActiveSessionID,
		Sessions:        make([]Session, len(wire.Sessions)),
	}
	for i, session := range wire.Sessions {
		links := make([]Link, len(session.Links))
		for j, wireLink := range session.Links {
			link, err := linkFromWire(wireLink)
			if err != nil {
				return Data{}, err
			}
			links[j] = link
		}
		data.Sessions[i] = Session{ID: session.ID, Name: session.Name, Links: links}
	}
	for _, wireLink := range wire.Links {
		link, err := linkFromWire(wireLink)
		if err != nil {
			return Data{}, err
		}
		data.LegacyLinks = append(data.LegacyLinks, link)
	}
	return data, nil
}
