// Command datalake builds the song-play data lake: it reads the song catalog
// and the activity logs and writes songs_table, artists_table, users_table,
// time_table and songplays_table.
package main

import (
	"os"

	// register all backends with the storage factory.
	_ "datalake/internal/storage/all"
)

func main() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
