package handlers

import (
	"github.com/gin-gonic/gin"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/domain/ledger"
	"stockd/internal/infrastructure/http/v1/dto"
)

// StockHandler serves stock and lot balance reads.
type StockHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

// NewStockHandler creates a stock handler.
func NewStockHandler(base *BaseHandler, ledgerSvc *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		ledger:      ledgerSvc,
	}
}

// GetBalance returns the stock balance for one key. Absent keys answer
// with a zero-valued balance, never 404: a key nobody moved yet holds
// zero stock.
func (h *StockHandler) GetBalance(c *gin.Context) {
	key, ok := h.parseKey(c)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockBalance(balance))
}

// GetLots returns all lot balances for one stock key, expiring first.
func (h *StockHandler) GetLots(c *gin.Context) {
	key, ok := h.parseKey(c)
	if !ok {
		return
	}

	lots, err := h.ledger.LotBalances(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.LotBalanceResponse, 0, len(lots))
	for _, lot := range lots {
		items = append(items, dto.FromLotBalance(lot))
	}
	h.OK(c, items)
}

func (h *StockHandler) parseKey(c *gin.Context) (ledger.StockKey, bool) {
	var query dto.BalanceQuery
	if !h.BindQuery(c, &query) {
		return ledger.StockKey{}, false
	}

	productID, err := id.Parse(query.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", query.ProductID))
		return ledger.StockKey{}, false
	}
	warehouseID, err := id.Parse(query.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouse id").WithDetail("value", query.WarehouseID))
		return ledger.StockKey{}, false
	}

	location := query.Location
	if location == "" {
		location = "main"
	}

	return ledger.StockKey{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Location:    location,
	}, true
}
