// Package quadency implements the Exchange interface for the Quadency
// cryptocurrency exchange. It speaks the QUADX REST dialect: public market
// data plus HMAC-SHA256 signed private endpoints for trades, balances, and
// order placement.
package quadency
