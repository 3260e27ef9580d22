package mockapi

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-estate-client/favorites"
	"github.com/jrsteele09/go-estate-client/notifications"
	"github.com/jrsteele09/go-estate-client/sidebar"
	"github.com/jrsteele09/go-estate-client/wallet"
)

// dataset holds every per-user collection of the development backend.
type dataset struct {
	mu sync.RWMutex

	ledgers       map[string][]wallet.Transaction // userID -> transactions, newest first
	pending       map[string]string               // orderID -> userID
	notifications map[string][]notifications.Notification
	favorites     map[string][]favorites.Item
	sidebar       sidebar.Config
	issued        map[string]map[string]time.Time // userID -> access token id -> expiry
}

func newDataset() *dataset {
	return &dataset{
		ledgers:       make(map[string][]wallet.Transaction),
		pending:       make(map[string]string),
		notifications: make(map[string][]notifications.Notification),
		favorites:     make(map[string][]favorites.Item),
		issued:        make(map[string]map[string]time.Time),
	}
}

func (d *dataset) recordAccessToken(userID, jti string, exp time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.issued[userID] == nil {
		d.issued[userID] = make(map[string]time.Time)
	}
	d.issued[userID][jti] = exp
}

// endSessions forgets and returns every access token issued to userID.
func (d *dataset) endSessions(userID string) map[string]time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	issued := d.issued[userID]
	delete(d.issued, userID)
	return issued
}

// WALLET

func (d *dataset) addTransaction(userID string, tx wallet.Transaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledgers[userID] = append([]wallet.Transaction{tx}, d.ledgers[userID]...)
	if tx.Status == wallet.StatusPending && tx.OrderID != "" {
		d.pending[tx.OrderID] = userID
	}
}

func (d *dataset) transactions(userID string) []wallet.Transaction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.ledgers[userID])
}

func (d *dataset) transaction(userID, id string) (wallet.Transaction, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, tx := range d.ledgers[userID] {
		if tx.ID == id || (tx.OrderID != "" && tx.OrderID == id) {
			return tx, true
		}
	}
	return wallet.Transaction{}, false
}

// settle moves the pending transaction for orderID to status. It reports the
// owning user and false when the order is unknown or already settled.
func (d *dataset) settle(orderID string, status wallet.TransactionStatus, reference string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	userID, ok := d.pending[orderID]
	if !ok {
		return "", false
	}
	delete(d.pending, orderID)
	ledger := d.ledgers[userID]
	for i := range ledger {
		if ledger[i].OrderID == orderID {
			ledger[i].Status = status
			ledger[i].Reference = reference
		}
	}
	return userID, true
}

func (d *dataset) walletInfo(userID string) wallet.Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var info wallet.Info
	ledger := d.ledgers[userID]
	info.TotalTransactions = len(ledger)
	for _, tx := range ledger {
		if info.LastTransaction == nil || tx.CreatedAt.After(*info.LastTransaction) {
			t := tx.CreatedAt
			info.LastTransaction = &t
		}
		if tx.Status != wallet.StatusCompleted {
			continue
		}
		if tx.Type.Credit() {
			info.Balance += tx.Amount
			info.TotalIncome += tx.Amount
		} else {
			info.Balance -= tx.Amount
			info.TotalSpending += tx.Amount
		}
		if tx.Type == wallet.TransactionBonus {
			info.BonusEarned += tx.Amount
		}
	}
	return info
}

// NOTIFICATIONS

func (d *dataset) addNotification(userID string, n notifications.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications[userID] = append([]notifications.Notification{n}, d.notifications[userID]...)
}

func (d *dataset) notificationList(userID string) ([]notifications.Notification, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := slices.Clone(d.notifications[userID])
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return list, unread
}

func (d *dataset) markRead(userID, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return true
		}
	}
	return false
}

func (d *dataset) markAllRead(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := 0
	list := d.notifications[userID]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	return changed
}

// SIDEBAR

func (d *dataset) sidebarConfig() sidebar.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return *d.sidebar.Clone()
}

func (d *dataset) setSidebar(cfg sidebar.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sidebar = *cfg.Clone()
}

// replaceSidebar applies patch when its version matches the stored one.
func (d *dataset) replaceSidebar(id string, patch sidebar.ConfigPatch, now time.Time) (sidebar.Config, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id != d.sidebar.ID {
		return sidebar.Config{}, errSidebarNotFound
	}
	if patch.Version != d.sidebar.Version {
		return sidebar.Config{}, errSidebarConflict
	}
	if patch.Items != nil {
		d.sidebar.Items = sidebar.NormalizeItems(patch.Items)
	}
	if patch.Groups != nil {
		d.sidebar.Groups = sidebar.NormalizeGroups(patch.Groups)
	}
	d.sidebar.Version++
	d.sidebar.UpdatedAt = &now
	return *d.sidebar.Clone(), nil
}

// FAVORITES

func (d *dataset) favoriteList(userID string) []favorites.Item {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := slices.Clone(d.favorites[userID])
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].AddedAt.Before(list[j].AddedAt)
	})
	return list
}

// addFavorite stores item and reports false if it was already present.
func (d *dataset) addFavorite(userID string, item favorites.Item) (favorites.Item, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.favorites[userID] {
		if existing.ID == item.ID {
			return existing, false
		}
	}
	d.favorites[userID] = append(d.favorites[userID], item)
	return item, true
}

func (d *dataset) removeFavorite(userID, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	before := len(d.favorites[userID])
	d.favorites[userID] = slices.DeleteFunc(d.favorites[userID], func(it favorites.Item) bool {
		return it.ID == id
	})
	return len(d.favorites[userID]) != before
}
