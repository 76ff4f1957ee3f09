package models

// PricesRequest is the bound+validated form of GET /api/prices/:begin/:end.
// MaxPoints caps the response size; the engine downsamples, never truncates.
type PricesRequest struct {
	Begin     int64 `param:"begin" validate:"gte=0"`
	End       int64 `param:"end" validate:"gte=0"`
	MaxPoints int   `query:"points" default:"200" validate:"gte=2,lte=2000"`
}
