// Package model defines the input records read from the song catalog and the
// activity logs, the typed rows of the five output tables, and the Table
// payload handed to sinks.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NextSongPage is the only page value that represents an actual play.
const NextSongPage = "NextSong"

// SongRecord is one catalog entry. Song and artist fields arrive flattened in
// the same JSON object.
type SongRecord struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// EventRecord is one user-activity log entry.
type EventRecord struct {
	Artist        string     `json:"artist"`
	Auth          string     `json:"auth"`
	FirstName     string     `json:"firstName"`
	Gender        string     `json:"gender"`
	ItemInSession int        `json:"itemInSession"`
	LastName      string     `json:"lastName"`
	Length        *float64   `json:"length"`
	Level         string     `json:"level"`
	Location      string     `json:"location"`
	Method        string     `json:"method"`
	Page          string     `json:"page"`
	Registration  *float64   `json:"registration"`
	SessionID     int64      `json:"sessionId"`
	Song          string     `json:"song"`
	Status        int        `json:"status"`
	TS            int64      `json:"ts"`
	UserAgent     string     `json:"userAgent"`
	UserID        FlexString `json:"userId"`
}

// IsPlay reports whether the event is a NextSong page view.
func (e EventRecord) IsPlay() bool { return e.Page == NextSongPage }

// FlexString decodes from either a JSON string or a JSON number. The activity
// logs carry userId as a string ("39", or "" for logged-out users) but some
// exports emit it as a bare number.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flexstring: want string or number, got %s", b)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the underlying string.
func (f FlexString) String() string { return string(f) }
