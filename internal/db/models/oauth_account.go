package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthAccount stores the tokens linking a User to an identity provider.
// (Provider, ProviderAccountID) and (UserID, Provider) are both unique.
// It is never serialized to API clients.
type OAuthAccount struct {
	ID                string     `gorm:"primaryKey;size:36" json:"-"`
	UserID            string     `gorm:"size:36;not null;uniqueIndex:idx_oauth_user_provider" json:"-"`
	Provider          string     `gorm:"size:50;not null;uniqueIndex:idx_oauth_provider_account;uniqueIndex:idx_oauth_user_provider" json:"-"`
	ProviderAccountID string     `gorm:"size:255;not null;uniqueIndex:idx_oauth_provider_account" json:"-"`
	AccessToken       string     `gorm:"type:text" json:"-"`
	RefreshToken      string     `gorm:"type:text" json:"-"`
	ExpiresAt         *time.Time `json:"-"`
	Scope             string     `gorm:"type:text" json:"-"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"-"`
}

// TableName keeps the conventional table name instead of GORM's "o_auth_accounts".
func (OAuthAccount) TableName() string {
	return "oauth_accounts"
}

// BeforeCreate assigns a UUID when the caller did not.
func (a *OAuthAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
