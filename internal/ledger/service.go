package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
)

var (
	// ErrInvalidOrder rejects orders with a missing ticker or a
	// non-positive quantity.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrUnknownHolding rejects sells of a stock the user does not hold.
	ErrUnknownHolding = errors.New("no holding for stock")

	// ErrInsufficientShares rejects sells larger than the held quantity.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrPriceUnavailable declines an order whose market price could not
	// be fetched.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Service executes manual trades and reports portfolio state. Every
// order is one atomic unit: holding, balance and ledger entry commit
// together or not at all.
type Service struct {
	store  *store.Store
	market marketdata.ClientInterface
	logger *zap.Logger
}

func NewService(st *store.Store, market marketdata.ClientInterface, logger *zap.Logger) *Service {
	return &Service{store: st, market: market, logger: logger}
}

// TradeReceipt confirms an executed manual order.
type TradeReceipt struct {
	Stock      string          `json:"stock"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// BuyStock buys a quantity of a stock at the current market price,
// merging into an existing position at the weighted average buying
// price.
func (s *Service) BuyStock(ctx context.Context, userID uint, ticker string, quantity int64) (*TradeReceipt, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" || quantity <= 0 {
		return nil, ErrInvalidOrder
	}

	price, err := s.market.GetPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPriceUnavailable, ticker)
	}
	total := price.Mul(decimal.NewFromInt(quantity))

	receipt := &TradeReceipt{Stock: ticker, Quantity: quantity, Price: price, Total: total}
	err = s.store.Transaction(func(tx *store.Store) error {
		holding, err := tx.GetHoldingForUpdate(userID, ticker)
		switch {
		case err == nil:
			holding.ApplyBuy(quantity, price)
		case errors.Is(err, gorm.ErrRecordNotFound):
			holding = &models.Holding{
				UserID:       userID,
				Stock:        ticker,
				Quantity:     quantity,
				BuyingPrice:  price,
				CurrentPrice: price,
			}
		default:
			return err
		}
		if err := tx.SaveHolding(holding); err != nil {
			return err
		}

		if err := tx.DebitBalance(userID, total); err != nil {
			return err
		}
		user, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		receipt.NewBalance = user.Balance

		return tx.AppendTransaction(&models.Transaction{
			UserID:          userID,
			TransactionType: models.TransactionTypeBuy,
			Debit:           total,
			Credit:          decimal.Zero,
			Description:     fmt.Sprintf("Bought %d shares of %s @ $%s", quantity, ticker, price),
			BalanceAfter:    user.Balance,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual buy executed",
		zap.Uint("user_id", userID),
		zap.String("ticker", ticker),
		zap.Int64("quantity", quantity),
		zap.String("price", price.String()))
	return receipt, nil
}

// SellStock sells a quantity of a held stock at the current market
// price. A partial sell keeps the average buying price; selling the
// full position deletes it.
func (s *Service) SellStock(ctx context.Context, userID uint, ticker string, quantity int64) (*TradeReceipt, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" || quantity <= 0 {
		return nil, ErrInvalidOrder
	}

	held, err := s.store.GetHolding(userID, ticker)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHolding, ticker)
	}
	if err != nil {
		return nil, err
	}
	if held.Quantity < quantity {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrInsufficientShares, held.Quantity, quantity)
	}

	price, err := s.market.GetPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPriceUnavailable, ticker)
	}
	total := price.Mul(decimal.NewFromInt(quantity))

	receipt := &TradeReceipt{Stock: ticker, Quantity: quantity, Price: price, Total: total}
	err = s.store.Transaction(func(tx *store.Store) error {
		holding, err := tx.GetHoldingForUpdate(userID, ticker)
		if err != nil {
			return err
		}
		if holding.Quantity < quantity {
			return fmt.Errorf("%w: have %d, want %d", ErrInsufficientShares, holding.Quantity, quantity)
		}

		if holding.Quantity == quantity {
			if err := tx.DeleteHolding(holding); err != nil {
				return err
			}
		} else {
			holding.Quantity -= quantity
			holding.CurrentPrice = price
			if err := tx.SaveHolding(holding); err != nil {
				return err
			}
		}

		if err := tx.CreditBalance(userID, total); err != nil {
			return err
		}
		user, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		receipt.NewBalance = user.Balance

		return tx.AppendTransaction(&models.Transaction{
			UserID:          userID,
			TransactionType: models.TransactionTypeSell,
			Debit:           decimal.Zero,
			Credit:          total,
			Description:     fmt.Sprintf("Sold %d shares of %s @ $%s", quantity, ticker, price),
			BalanceAfter:    user.Balance,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual sell executed",
		zap.Uint("user_id", userID),
		zap.String("ticker", ticker),
		zap.Int64("quantity", quantity),
		zap.String("price", price.String()))
	return receipt, nil
}

// Holdings returns the user's holdings as stored, without a price
// refresh.
func (s *Service) Holdings(userID uint) ([]models.Holding, error) {
	return s.store.HoldingsForUser(userID)
}

// RefreshHoldings updates every holding's current price from the
// market and returns the refreshed list. Holdings whose price is
// unavailable keep their last known price.
func (s *Service) RefreshHoldings(ctx context.Context, userID uint) ([]models.Holding, error) {
	holdings, err := s.store.HoldingsForUser(userID)
	if err != nil {
		return nil, err
	}

	for i := range holdings {
		price, err := s.market.GetPrice(ctx, holdings[i].Stock)
		if err != nil {
			s.logger.Warn("Price refresh failed, keeping last price",
				zap.String("ticker", holdings[i].Stock), zap.Error(err))
			continue
		}
		holdings[i].CurrentPrice = price
		if err := s.store.SaveHolding(&holdings[i]); err != nil {
			return nil, err
		}
	}
	return holdings, nil
}

// PortfolioSummary aggregates the account's balance, refreshed
// holdings and ledger into one view.
type PortfolioSummary struct {
	TotalBalance       decimal.Decimal `json:"total_balance"`
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalCurrentValue  decimal.Decimal `json:"total_current_value"`
	TotalProfitLoss    decimal.Decimal `json:"total_profit_loss"`
	TotalProfitLossPct decimal.Decimal `json:"total_profit_loss_percentage"`
	HoldingsCount      int             `json:"holdings_count"`
	TransactionsCount  int64           `json:"transactions_count"`
}

// Portfolio refreshes the user's holdings and returns them with the
// aggregated summary.
func (s *Service) Portfolio(ctx context.Context, userID uint) ([]models.Holding, *PortfolioSummary, error) {
	holdings, err := s.RefreshHoldings(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, nil, err
	}
	txnCount, err := s.store.CountTransactionsForUser(userID)
	if err != nil {
		return nil, nil, err
	}

	summary := &PortfolioSummary{
		TotalBalance:      user.Balance,
		HoldingsCount:     len(holdings),
		TransactionsCount: txnCount,
	}
	for i := range holdings {
		summary.TotalInvested = summary.TotalInvested.Add(holdings[i].TotalInvested())
		summary.TotalCurrentValue = summary.TotalCurrentValue.Add(holdings[i].CurrentValue())
	}
	summary.TotalProfitLoss = summary.TotalCurrentValue.Sub(summary.TotalInvested)
	if summary.TotalInvested.IsPositive() {
		summary.TotalProfitLossPct = summary.TotalProfitLoss.
			Div(summary.TotalInvested).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return holdings, summary, nil
}

// ProfitableHoldings returns the holdings currently valued above their
// cost basis, based on stored prices.
func (s *Service) ProfitableHoldings(userID uint) ([]models.Holding, error) {
	return s.filterHoldings(userID, func(h *models.Holding) bool {
		return h.ProfitLoss().IsPositive()
	})
}

// LosingHoldings returns the holdings currently valued below their cost
// basis, based on stored prices.
func (s *Service) LosingHoldings(userID uint) ([]models.Holding, error) {
	return s.filterHoldings(userID, func(h *models.Holding) bool {
		return h.ProfitLoss().IsNegative()
	})
}

func (s *Service) filterHoldings(userID uint, keep func(*models.Holding) bool) ([]models.Holding, error) {
	holdings, err := s.store.HoldingsForUser(userID)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Holding, 0, len(holdings))
	for i := range holdings {
		if keep(&holdings[i]) {
			filtered = append(filtered, holdings[i])
		}
	}
	return filtered, nil
}

// Transactions returns the user's ledger entries, newest first. A zero
// limit returns all of them.
func (s *Service) Transactions(userID uint, limit int) ([]models.Transaction, error) {
	return s.store.TransactionsForUser(userID, limit)
}

// TransactionSummary totals the user's ledger.
type TransactionSummary struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalDebit        decimal.Decimal `json:"total_debit"`
	TotalCredit       decimal.Decimal `json:"total_credit"`
	NetFlow           decimal.Decimal `json:"net_flow"`
}

// SummarizeTransactions totals all debits and credits on the account.
func (s *Service) SummarizeTransactions(userID uint) (*TransactionSummary, error) {
	txns, err := s.store.TransactionsForUser(userID, 0)
	if err != nil {
		return nil, err
	}

	summary := &TransactionSummary{TotalTransactions: len(txns)}
	for i := range txns {
		summary.TotalDebit = summary.TotalDebit.Add(txns[i].Debit)
		summary.TotalCredit = summary.TotalCredit.Add(txns[i].Credit)
	}
	summary.NetFlow = summary.TotalCredit.Sub(summary.TotalDebit)
	return summary, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
