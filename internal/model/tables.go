package model

import "time"

// Output table names. Sinks persist tables under exactly these names.
const (
	SongsTableName     = "songs_table"
	ArtistsTableName   = "artists_table"
	UsersTableName     = "users_table"
	TimeTableName      = "time_table"
	SongplaysTableName = "songplays_table"
)

// TableNames lists the output tables in the order a full run writes them.
var TableNames = []string{
	SongsTableName,
	ArtistsTableName,
	UsersTableName,
	TimeTableName,
	SongplaysTableName,
}

// Song is a row of songs_table.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is a row of artists_table.
type Artist struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// User is a row of users_table.
type User struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// TimeRow is a row of time_table. Weekday is ISO-8601: Monday=1 ... Sunday=7.
type TimeRow struct {
	StartTime string
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// Songplay is a row of the songplays_table fact table.
type Songplay struct {
	SongplayID int64
	StartTime  time.Time
	UserID     string
	Level      string
	SongID     string
	ArtistID   string
	SessionID  int64
	Location   string
	UserAgent  string
}

// ColumnType is the logical type of a table column.
type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeInt64     ColumnType = "int64"
	TypeFloat64   ColumnType = "float64"
	TypeTimestamp ColumnType = "timestamp"
)

// Column describes one column of a Table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	// Key marks the column(s) that are unique within the table.
	Key bool
}

// Table is the payload handed to a sink: fully ordered rows aligned with
// Columns. PartitionBy names columns (present in Columns) that columnar sinks
// may lift into the directory layout.
type Table struct {
	Name        string
	Columns     []Column
	PartitionBy []string
	Rows        [][]any
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

var songColumns = []Column{
	{Name: "song_id", Type: TypeString, Key: true},
	{Name: "title", Type: TypeString},
	{Name: "artist_id", Type: TypeString},
	{Name: "year", Type: TypeInt64},
	{Name: "duration", Type: TypeFloat64},
}

// SongsTable builds songs_table, partitioned by year and artist_id.
func SongsTable(rows []Song) *Table {
	t := &Table{
		Name:        SongsTableName,
		Columns:     songColumns,
		PartitionBy: []string{"year", "artist_id"},
		Rows:        make([][]any, len(rows)),
	}
	for i, s := range rows {
		t.Rows[i] = []any{s.SongID, s.Title, s.ArtistID, int64(s.Year), s.Duration}
	}
	return t
}

var artistColumns = []Column{
	{Name: "artist_id", Type: TypeString, Key: true},
	{Name: "name", Type: TypeString},
	{Name: "location", Type: TypeString},
	{Name: "latitude", Type: TypeFloat64, Nullable: true},
	{Name: "longitude", Type: TypeFloat64, Nullable: true},
}

// ArtistsTable builds artists_table.
func ArtistsTable(rows []Artist) *Table {
	t := &Table{
		Name:    ArtistsTableName,
		Columns: artistColumns,
		Rows:    make([][]any, len(rows)),
	}
	for i, a := range rows {
		t.Rows[i] = []any{a.ArtistID, a.Name, a.Location, floatOrNil(a.Latitude), floatOrNil(a.Longitude)}
	}
	return t
}

var userColumns = []Column{
	{Name: "user_id", Type: TypeString, Key: true},
	{Name: "first_name", Type: TypeString},
	{Name: "last_name", Type: TypeString},
	{Name: "gender", Type: TypeString},
	{Name: "level", Type: TypeString},
}

// UsersTable builds users_table.
func UsersTable(rows []User) *Table {
	t := &Table{
		Name:    UsersTableName,
		Columns: userColumns,
		Rows:    make([][]any, len(rows)),
	}
	for i, u := range rows {
		t.Rows[i] = []any{u.UserID, u.FirstName, u.LastName, u.Gender, u.Level}
	}
	return t
}

var timeColumns = []Column{
	{Name: "start_time", Type: TypeString, Key: true},
	{Name: "hour", Type: TypeInt64},
	{Name: "day", Type: TypeInt64},
	{Name: "week", Type: TypeInt64},
	{Name: "month", Type: TypeInt64},
	{Name: "year", Type: TypeInt64},
	{Name: "weekday", Type: TypeInt64},
}

// TimeTable builds time_table, partitioned by year and month.
func TimeTable(rows []TimeRow) *Table {
	t := &Table{
		Name:        TimeTableName,
		Columns:     timeColumns,
		PartitionBy: []string{"year", "month"},
		Rows:        make([][]any, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []any{
			r.StartTime,
			int64(r.Hour),
			int64(r.Day),
			int64(r.Week),
			int64(r.Month),
			int64(r.Year),
			int64(r.Weekday),
		}
	}
	return t
}

var songplayColumns = []Column{
	{Name: "songplay_id", Type: TypeInt64, Key: true},
	{Name: "start_time", Type: TypeTimestamp},
	{Name: "user_id", Type: TypeString},
	{Name: "level", Type: TypeString},
	{Name: "song_id", Type: TypeString},
	{Name: "artist_id", Type: TypeString},
	{Name: "session_id", Type: TypeInt64},
	{Name: "location", Type: TypeString},
	{Name: "user_agent", Type: TypeString},
	// Partition-only columns derived from start_time.
	{Name: "year", Type: TypeInt64},
	{Name: "month", Type: TypeInt64},
}

// SongplaysTable builds songplays_table, partitioned by the year and month of
// start_time. Year and month are evaluated in the location carried by each
// StartTime.
func SongplaysTable(rows []Songplay) *Table {
	t := &Table{
		Name:        SongplaysTableName,
		Columns:     songplayColumns,
		PartitionBy: []string{"year", "month"},
		Rows:        make([][]any, len(rows)),
	}
	for i, p := range rows {
		t.Rows[i] = []any{
			p.SongplayID,
			p.StartTime,
			p.UserID,
			p.Level,
			p.SongID,
			p.ArtistID,
			p.SessionID,
			p.Location,
			p.UserAgent,
			int64(p.StartTime.Year()),
			int64(p.StartTime.Month()),
		}
	}
	return t
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
