package dashboard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/series"
	"github.com/dashcast/dashcast/stocks"
	"github.com/dashcast/dashcast/table"
)

// userMessage maps an error to the status code and message shown to the user
func userMessage(err error) (int, string) {
	var (
		tsErr  *series.TimestampError
		valErr *series.ValueError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("The uploaded file is larger than %d bytes.", maxErr.Limit)
	case errors.Is(err, ErrNoUpload):
		return http.StatusBadRequest, "Upload a .csv or .xlsx file."
	case errors.Is(err, table.ErrUnsupportedFileFormat):
		return http.StatusUnsupportedMediaType, "Unsupported file format. Upload a .csv or .xlsx file."
	case errors.Is(err, table.ErrEmptyTable):
		return http.StatusBadRequest, "The uploaded file has no header row."
	case errors.Is(err, series.ErrMissingColumn):
		return http.StatusBadRequest, fmt.Sprintf("Selected column not found: %v.", err)
	case errors.As(err, &tsErr):
		return http.StatusUnprocessableEntity, fmt.Sprintf("Row %d: %q is not a recognized date.", tsErr.Row, tsErr.Value)
	case errors.Is(err, series.ErrInvalidTimestamp):
		return http.StatusUnprocessableEntity, "The file needs a date column and a value column."
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity, fmt.Sprintf("Row %d: %q is not a number.", valErr.Row, valErr.Value)
	case errors.Is(err, series.ErrInvalidWindow):
		return http.StatusBadRequest, "The history window must be a positive number of rows."
	case errors.Is(err, pipeline.ErrInvalidHorizon):
		return http.StatusBadRequest, "Choose a short (3 months) or long (6 months) forecast."
	case errors.Is(err, pipeline.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "At least two dated values are needed to forecast."
	case errors.Is(err, pipeline.ErrEmptyComparisonSet):
		return http.StatusOK, "No comparable data."
	case errors.Is(err, stocks.ErrNoData):
		return http.StatusNotFound, stocks.ErrNoData.Error()
	case errors.Is(err, stocks.ErrInvalidSymbol), errors.Is(err, stocks.ErrInvalidRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, stocks.ErrUpstream):
		return http.StatusBadGateway, "The stock price source is unavailable. Try again later."
	case errors.Is(err, ErrInvalidForm):
		return http.StatusBadRequest, fmt.Sprintf("Check the form fields: %v.", err)
	}
	return http.StatusInternalServerError, "Something went wrong."
}
