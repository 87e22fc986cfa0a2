package service

import "trade_guard/internal/exchange"

var _ exchange.Gateway = (*Client)(nil)
