package utils

// TokenDecimals is the stablecoin's decimal precision. One whole token is
// 10^TokenDecimals base units; all arithmetic in this service happens in
// base units.
const TokenDecimals = 6
