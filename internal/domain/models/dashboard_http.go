package models

// Requests for the dashboard HTTP endpoints.

type IndicatorRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}

type AltcoinScreenerRequest struct {
	Limit int    `query:"limit" json:"limit" default:"40" validate:"gte=1,lte=100"`
	Sort  string `query:"sort" json:"sort" default:"breakout" validate:"oneof=breakout volume oi_z funding"`
}

type KoreanScreenerRequest struct {
	Limit int    `query:"limit" json:"limit" default:"40" validate:"gte=1,lte=100"`
	Sort  string `query:"sort" json:"sort" default:"volume" validate:"oneof=volume premium"`
}

// RefreshRequest names the cache tags to drop. cachetag is registered by the API handler.
type RefreshRequest struct {
	Tags []string `json:"tags" validate:"omitempty,max=16,dive,cachetag"`
}
