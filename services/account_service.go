package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"conference-booking-server/models"
	"conference-booking-server/zoom"
)

// ClientFactory builds a provider client bound to one account's credentials.
// Tests substitute a fake here.
type ClientFactory func(account *models.ResourceAccount) zoom.Client

// AccountService is the registry of external resource accounts: lookup,
// eligibility filtering and per-account client handles.
type AccountService struct {
	db      *gorm.DB
	factory ClientFactory
}

func NewAccountService(db *gorm.DB, factory ClientFactory) *AccountService {
	return &AccountService{db: db, factory: factory}
}

// GetActiveAccount loads an account and verifies it is eligible for
// allocation. Inactive accounts are reported as a validation failure, not
// silently used.
func (s *AccountService) GetActiveAccount(id uint) (*models.ResourceAccount, error) {
	var account models.ResourceAccount
	if err := s.db.First(&account, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: resource account %d", ErrNotFound, id)
		}
		return nil, err
	}
	if account.Status != models.ResourceAccountActive {
		return nil, fmt.Errorf("%w: resource account %q is not active", ErrValidation, account.Label)
	}
	return &account, nil
}

func (s *AccountService) ListActiveAccounts() ([]models.ResourceAccount, error) {
	var accounts []models.ResourceAccount
	err := s.db.
		Where("status = ?", models.ResourceAccountActive).
		Order("label").
		Find(&accounts).Error
	return accounts, err
}

// ClientFor returns the provider client bound to the account's credentials.
func (s *AccountService) ClientFor(account *models.ResourceAccount) zoom.Client {
	return s.factory(account)
}

// TestConnectivity verifies the account's credentials against the provider
// and records the timestamp of the last successful check.
func (s *AccountService) TestConnectivity(account *models.ResourceAccount) error {
	client := s.ClientFor(account)
	pinger, ok := client.(zoom.Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Ping(); err != nil {
		log.Printf("❌ Connectivity test failed for account %q: %v", account.Label, err)
		return newProviderError("connectivity test", err)
	}

	now := time.Now()
	if err := s.db.Model(account).Update("last_verified_at", &now).Error; err != nil {
		return err
	}
	account.LastVerifiedAt = &now
	log.Printf("✅ Connectivity verified for account %q", account.Label)
	return nil
}
