package schema

import (
	"time"

	"github.com/doug-martin/goqu/v9"
)

const (
	ImageTableName            = "image"
	ImageTableIDColName       = "id"
	ImageTableFilepathColName = "filepath"
	ImageTableFilesizeColName = "filesize"
	ImageTableWidthColName    = "width"
	ImageTableHeightColName   = "height"
	ImageTableDirColName      = "dir"
	ImageTableDateAddColName  = "date_add"
)

var (
	ImageTable            = goqu.T(ImageTableName)
	ImageTableIDCol       = ImageTable.Col(ImageTableIDColName)
	ImageTableWidthCol    = ImageTable.Col(ImageTableWidthColName)
	ImageTableHeightCol   = ImageTable.Col(ImageTableHeightColName)
	ImageTableFilesizeCol = ImageTable.Col(ImageTableFilesizeColName)
	ImageTableFilepathCol = ImageTable.Col(ImageTableFilepathColName)
	ImageTableDirCol      = ImageTable.Col(ImageTableDirColName)
	ImageTableDateAddCol  = ImageTable.Col(ImageTableDateAddColName)
)

type ImageRow struct {
	ID       int64     `db:"id"`
	Width    int       `db:"width"`
	Height   int       `db:"height"`
	Filesize int64     `db:"filesize"`
	Filepath string    `db:"filepath"`
	Dir      string    `db:"dir"`
	DateAdd  time.Time `db:"date_add"`
}
