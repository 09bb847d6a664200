package storage

import (
	"net/url"
	"strings"
	"time"

	"github.com/autowp/goimagestorage/schema"
)

// Image is the public view of a stored file.
type Image struct {
	id       int64
	width    int
	height   int
	filepath string
	filesize int64
	src      string
	dir      string
	dateAdd  time.Time
}

func newImage(row schema.ImageRow, dir *Dir) *Image {
	return &Image{
		id:       row.ID,
		width:    row.Width,
		height:   row.Height,
		filepath: row.Filepath,
		filesize: row.Filesize,
		src:      dir.URL() + escapePath(row.Filepath),
		dir:      row.Dir,
		dateAdd:  row.DateAdd,
	}
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}

func (s Image) ID() int64 {
	return s.id
}

func (s Image) Src() string {
	return s.src
}

func (s Image) Width() int {
	return s.width
}

func (s Image) Height() int {
	return s.height
}

func (s Image) FileSize() int64 {
	return s.filesize
}

func (s Image) Dir() string {
	return s.dir
}

func (s Image) Filepath() string {
	return s.filepath
}

func (s Image) DateAdd() time.Time {
	return s.dateAdd
}
