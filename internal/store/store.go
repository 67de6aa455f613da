package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
)

// ErrInsufficientBalance is returned when a debit would take an account
// balance below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Store wraps the gorm handle and provides all persistence operations
// for users, holdings, transactions, bots and index events.
type Store struct {
	db      *gorm.DB
	locking bool
}

// New creates a Store on top of an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{
		db: db,
		// sqlite has no SELECT ... FOR UPDATE; its single-writer
		// model serializes writes on its own.
		locking: db.Dialector.Name() != "sqlite",
	}
}

// Transaction runs fn inside a database transaction. The Store passed to
// fn is scoped to that transaction; any error rolls everything back.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, locking: s.locking})
	})
}

func (s *Store) forUpdate() *gorm.DB {
	if s.locking {
		return s.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return s.db
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveUser persists changes to an existing user.
func (s *Store) SaveUser(user *models.User) error {
	return s.db.Save(user).Error
}

// DebitBalance atomically subtracts amount from the user's balance. The
// update only applies while the resulting balance stays non-negative;
// otherwise ErrInsufficientBalance is returned and nothing changes.
func (s *Store) DebitBalance(userID uint, amount decimal.Decimal) error {
	res := s.db.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.db.First(&models.User{}, userID).Error; err != nil {
			return err
		}
		return ErrInsufficientBalance
	}
	return nil
}

// CreditBalance atomically adds amount to the user's balance.
func (s *Store) CreditBalance(userID uint, amount decimal.Decimal) error {
	res := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetHolding fetches the holding for (user, stock).
func (s *Store) GetHolding(userID uint, stock string) (*models.Holding, error) {
	var holding models.Holding
	err := s.db.Where("user_id = ? AND stock = ?", userID, stock).First(&holding).Error
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

// GetHoldingForUpdate fetches the holding for (user, stock) with a row
// lock where the dialect supports one. Use inside a Transaction.
func (s *Store) GetHoldingForUpdate(userID uint, stock string) (*models.Holding, error) {
	var holding models.Holding
	err := s.forUpdate().Where("user_id = ? AND stock = ?", userID, stock).First(&holding).Error
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

// HoldingsForUser lists all holdings of a user.
func (s *Store) HoldingsForUser(userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.db.Where("user_id = ?", userID).Order("stock ASC").Find(&holdings).Error
	return holdings, err
}

// SaveHolding creates or updates a holding row.
func (s *Store) SaveHolding(holding *models.Holding) error {
	return s.db.Save(holding).Error
}

// DeleteHolding removes a holding row for good.
func (s *Store) DeleteHolding(holding *models.Holding) error {
	return s.db.Delete(&models.Holding{}, holding.ID).Error
}

// AppendTransaction inserts an immutable ledger entry.
func (s *Store) AppendTransaction(txn *models.Transaction) error {
	return s.db.Create(txn).Error
}

// TransactionsForUser lists ledger entries newest first. A limit of zero
// or less lists everything.
func (s *Store) TransactionsForUser(userID uint, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	q := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&txns).Error
	return txns, err
}

// CountTransactionsForUser returns the number of ledger entries of a
// user.
func (s *Store) CountTransactionsForUser(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CreateBot inserts a new bot row.
func (s *Store) CreateBot(bot *models.AutoTradingBot) error {
	return s.db.Create(bot).Error
}

// GetBot fetches a bot by id.
func (s *Store) GetBot(id uint) (*models.AutoTradingBot, error) {
	var bot models.AutoTradingBot
	if err := s.db.First(&bot, id).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}

// GetBotForUser fetches a bot by id scoped to its owner.
func (s *Store) GetBotForUser(id, userID uint) (*models.AutoTradingBot, error) {
	var bot models.AutoTradingBot
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&bot).Error
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// BotsForUser lists all bots of a user, newest first.
func (s *Store) BotsForUser(userID uint) ([]models.AutoTradingBot, error) {
	var bots []models.AutoTradingBot
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&bots).Error
	return bots, err
}

// ActiveBots lists every bot currently in the ACTIVE state.
func (s *Store) ActiveBots() ([]models.AutoTradingBot, error) {
	var bots []models.AutoTradingBot
	err := s.db.Where("status = ?", models.BotStatusActive).Find(&bots).Error
	return bots, err
}

// SaveBot persists changes to an existing bot.
func (s *Store) SaveBot(bot *models.AutoTradingBot) error {
	return s.db.Save(bot).Error
}

// UpdateBotFields applies a partial update to a bot row. Values may be
// gorm expressions, which keeps counter updates atomic.
func (s *Store) UpdateBotFields(botID uint, fields map[string]interface{}) error {
	return s.db.Model(&models.AutoTradingBot{}).Where("id = ?", botID).Updates(fields).Error
}

// RecordBotBuy applies the capital and counter effects of an executed
// buy to the bot row. Expressions keep concurrent updates atomic.
func (s *Store) RecordBotBuy(botID uint, cost decimal.Decimal, at time.Time) error {
	return s.UpdateBotFields(botID, map[string]interface{}{
		"current_capital": gorm.Expr("current_capital - ?", cost),
		"total_trades":    gorm.Expr("total_trades + ?", 1),
		"last_trade_at":   at,
	})
}

// RecordBotSell applies the capital, realized profit and counter
// effects of an executed sell to the bot row.
func (s *Store) RecordBotSell(botID uint, revenue, profitLoss decimal.Decimal, winning bool, at time.Time) error {
	counter := "losing_trades"
	if winning {
		counter = "winning_trades"
	}
	return s.UpdateBotFields(botID, map[string]interface{}{
		"current_capital":   gorm.Expr("current_capital + ?", revenue),
		"total_profit_loss": gorm.Expr("total_profit_loss + ?", profitLoss),
		"total_trades":      gorm.Expr("total_trades + ?", 1),
		counter:             gorm.Expr(counter+" + ?", 1),
		"last_trade_at":     at,
	})
}

// AppendBotTrade inserts a bot trade audit record.
func (s *Store) AppendBotTrade(trade *models.BotTrade) error {
	return s.db.Create(trade).Error
}

// TradesForBot lists a bot's trades newest first.
func (s *Store) TradesForBot(botID uint) ([]models.BotTrade, error) {
	var trades []models.BotTrade
	err := s.db.Where("bot_id = ?", botID).Order("created_at DESC, id DESC").Find(&trades).Error
	return trades, err
}

// CreateIndexEvent inserts an announced index constituent change.
func (s *Store) CreateIndexEvent(event *models.IndexEvent) error {
	return s.db.Create(event).Error
}

// PendingIndexEvent fetches the next index event for a stock whose
// effective date has not passed at the given time.
func (s *Store) PendingIndexEvent(stock string, at time.Time) (*models.IndexEvent, error) {
	var event models.IndexEvent
	err := s.db.Where("stock = ? AND effective_date >= ?", stock, at).
		Order("effective_date ASC").First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpcomingIndexEvents lists events whose effective date has not passed,
// soonest first.
func (s *Store) UpcomingIndexEvents(at time.Time, limit int) ([]models.IndexEvent, error) {
	var events []models.IndexEvent
	q := s.db.Where("effective_date >= ?", at).Order("effective_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}
