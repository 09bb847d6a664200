package schema

import (
	"database/sql"

	"github.com/doug-martin/goqu/v9"
)

type FormattedImageStatus int

const (
	FormattedImageStatusDefault    FormattedImageStatus = 0
	FormattedImageStatusProcessing FormattedImageStatus = 1
	FormattedImageStatusFailed     FormattedImageStatus = 2
)

const (
	FormattedImageTableName                    = "formated_image"
	FormattedImageTableStatusColName           = "status"
	FormattedImageTableImageIDColName          = "image_id"
	FormattedImageTableFormatColName           = "format"
	FormattedImageTableFormattedImageIDColName = "formated_image_id"
	FormattedImageTableCropLeftColName         = "crop_left"
	FormattedImageTableCropTopColName          = "crop_top"
	FormattedImageTableCropWidthColName        = "crop_width"
	FormattedImageTableCropHeightColName       = "crop_height"
)

// FormattedImageTableKeyColNames is the unique key of an association.
var FormattedImageTableKeyColNames = []string{
	FormattedImageTableImageIDColName,
	FormattedImageTableFormatColName,
	FormattedImageTableCropLeftColName,
	FormattedImageTableCropTopColName,
	FormattedImageTableCropWidthColName,
	FormattedImageTableCropHeightColName,
}

var (
	FormattedImageTable                    = goqu.T(FormattedImageTableName)
	FormattedImageTableStatusCol           = FormattedImageTable.Col(FormattedImageTableStatusColName)
	FormattedImageTableImageIDCol          = FormattedImageTable.Col(FormattedImageTableImageIDColName)
	FormattedImageTableFormatCol           = FormattedImageTable.Col(FormattedImageTableFormatColName)
	FormattedImageTableFormattedImageIDCol = FormattedImageTable.Col(FormattedImageTableFormattedImageIDColName)
)

type FormattedImageRow struct {
	ImageID          int64                `db:"image_id"`
	Format           string               `db:"format"`
	CropLeft         int                  `db:"crop_left"`
	CropTop          int                  `db:"crop_top"`
	CropWidth        int                  `db:"crop_width"`
	CropHeight       int                  `db:"crop_height"`
	FormattedImageID sql.NullInt64        `db:"formated_image_id"`
	Status           FormattedImageStatus `db:"status"`
}
