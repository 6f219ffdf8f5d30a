package transform

import (
	"errors"
	"sort"
	"strings"

	"datalake/internal/model"
)

var (
	errMissingSongID   = errors.New("missing song_id")
	errMissingArtistID = errors.New("missing artist_id")
)

// DeriveSongsTable projects catalog records onto songs_table rows, keeps the
// first occurrence of every song_id and sorts ascending by song_id. Records
// without a song_id are reported and skipped.
func DeriveSongsTable(recs []model.SongRecord, report model.Reporter) []model.Song {
	rows := make([]model.Song, 0, len(recs))
	for i, r := range recs {
		if strings.TrimSpace(r.SongID) == "" {
			report.Report(&model.RecordError{Stage: model.SongsTableName, Index: i, Err: errMissingSongID})
			continue
		}
		rows = append(rows, model.Song{
			SongID:   r.SongID,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     r.Year,
			Duration: r.Duration,
		})
	}

	rows = DeDup(rows, func(s model.Song) string { return s.SongID }, KeepFirst)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SongID < rows[j].SongID })
	return rows
}

// DeriveArtistsTable projects catalog records onto artists_table rows, keeps
// the first occurrence of every artist_id and sorts ascending by artist_id.
// Records without an artist_id are reported and skipped.
func DeriveArtistsTable(recs []model.SongRecord, report model.Reporter) []model.Artist {
	rows := make([]model.Artist, 0, len(recs))
	for i, r := range recs {
		if strings.TrimSpace(r.ArtistID) == "" {
			report.Report(&model.RecordError{Stage: model.ArtistsTableName, Index: i, Err: errMissingArtistID})
			continue
		}
		rows = append(rows, model.Artist{
			ArtistID:  r.ArtistID,
			Name:      r.ArtistName,
			Location:  r.ArtistLocation,
			Latitude:  copyFloat(r.ArtistLatitude),
			Longitude: copyFloat(r.ArtistLongitude),
		})
	}

	rows = DeDup(rows, func(a model.Artist) string { return a.ArtistID }, KeepFirst)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ArtistID < rows[j].ArtistID })
	return rows
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
