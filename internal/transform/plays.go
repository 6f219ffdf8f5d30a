package transform

import (
	"sort"
	"strings"

	"datalake/internal/model"
)

// JoinStats summarizes a songplays derivation.
type JoinStats struct {
	// Matched is the number of events that joined to an artist.
	Matched int
	// Unmatched is the number of events whose artist matched no artist name.
	Unmatched int
	// SongsResolved is the number of matched events whose song_id was found.
	SongsResolved int
}

// ArtistIndex maps an exact artist name to its artists_table row. When several
// artists share a name, the one with the smallest artist_id wins so every
// event joins to at most one artist.
type ArtistIndex map[string]model.Artist

// IndexArtists builds the hash side of the artist join. artists is expected
// in artists_table order (ascending artist_id).
func IndexArtists(artists []model.Artist) ArtistIndex {
	idx := make(ArtistIndex, len(artists))
	for _, a := range artists {
		if prev, ok := idx[a.Name]; ok && prev.ArtistID <= a.ArtistID {
			continue
		}
		idx[a.Name] = a
	}
	return idx
}

type songKey struct {
	artistID string
	title    string
}

// songIndex resolves song_id by (artist_id, title); first song_id wins.
func songIndex(songs []model.Song) map[songKey]string {
	idx := make(map[songKey]string, len(songs))
	for _, s := range songs {
		k := songKey{artistID: s.ArtistID, title: s.Title}
		if _, ok := idx[k]; !ok {
			idx[k] = s.SongID
		}
	}
	return idx
}

// DeriveSongplaysTable inner-joins events to artists on
// event.artist == artist.name (exact, case-sensitive). Events without a
// matching artist produce no row. song_id is looked up in songs by the
// joined artist_id and the event's song title and left empty when absent;
// the lookup never removes rows.
//
// The joined rows are stable-sorted by (user_id, session_id) and numbered
// 1..N, so rows sharing both keys keep their input order.
func DeriveSongplaysTable(evs []TimedEvent, artists []model.Artist, songs []model.Song) ([]model.Songplay, JoinStats) {
	var stats JoinStats
	byName := IndexArtists(artists)
	bySong := songIndex(songs)

	rows := make([]model.Songplay, 0, len(evs))
	for _, e := range evs {
		a, ok := byName[e.Artist]
		if !ok {
			stats.Unmatched++
			continue
		}
		stats.Matched++

		songID := bySong[songKey{artistID: a.ArtistID, title: e.Song}]
		if songID != "" {
			stats.SongsResolved++
		}
		rows = append(rows, model.Songplay{
			StartTime: e.At.Instant,
			UserID:    strings.TrimSpace(e.UserID.String()),
			Level:     e.Level,
			SongID:    songID,
			ArtistID:  a.ArtistID,
			SessionID: e.SessionID,
			Location:  e.Location,
			UserAgent: e.UserAgent,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].UserID != rows[j].UserID {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].SessionID < rows[j].SessionID
	})
	for i := range rows {
		rows[i].SongplayID = int64(i + 1)
	}
	return rows, stats
}
