package db

import (
	"errors"
	"time"

	"github.com/pysugar/dataroom/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Default dataroom created alongside every new user.
const (
	DefaultDataroomName        = "My Dataroom"
	DefaultDataroomDescription = "Default dataroom for imported files"
)

// LoginIdentity is what a successful provider login tells us about the caller.
type LoginIdentity struct {
	Email             string
	Name              string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	Scope             string
	ExpiresAt         time.Time
}

// GetUser loads a user by id.
func GetUser(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindOAuthAccount returns the user's linked identity for provider.
func FindOAuthAccount(db *gorm.DB, userID, provider string) (*models.OAuthAccount, error) {
	var acct models.OAuthAccount
	if err := db.Where("user_id = ? AND provider = ?", userID, provider).First(&acct).Error; err != nil {
		return nil, notFound(err)
	}
	return &acct, nil
}

// GetOAuthAccount loads a linked identity by id.
func GetOAuthAccount(db *gorm.DB, id string) (*models.OAuthAccount, error) {
	var acct models.OAuthAccount
	if err := db.Where("id = ?", id).First(&acct).Error; err != nil {
		return nil, notFound(err)
	}
	return &acct, nil
}

// UpsertLogin records a provider login in one transaction. The first login for an
// email creates the user and its default dataroom; concurrent first logins for the
// same email converge on a single user.
func UpsertLogin(db *gorm.DB, in LoginIdentity) (*models.User, bool, error) {
	var (
		user    *models.User
		created bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, created, err = findOrCreateUser(tx, in.Email, in.Name)
		if err != nil {
			return err
		}
		return upsertOAuthAccount(tx, user.ID, in)
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func findOrCreateUser(tx *gorm.DB, email, name string) (*models.User, bool, error) {
	var existing models.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user := models.User{Email: email, Name: name}
	res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&user)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Another login for this email won the insert.
		if err := tx.Where("email = ?", email).First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}

	dataroom := models.Dataroom{
		UserID:      user.ID,
		Name:        DefaultDataroomName,
		Description: DefaultDataroomDescription,
	}
	if err := tx.Create(&dataroom).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func upsertOAuthAccount(tx *gorm.DB, userID string, in LoginIdentity) error {
	for attempt := 0; attempt < 2; attempt++ {
		var acct models.OAuthAccount
		err := tx.Where("provider = ? AND provider_account_id = ?", in.Provider, in.ProviderAccountID).First(&acct).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("user_id = ? AND provider = ?", userID, in.Provider).First(&acct).Error
		}
		switch {
		case err == nil:
			return updateLoginTokens(tx, &acct, in)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		acct = models.OAuthAccount{
			UserID:            userID,
			Provider:          in.Provider,
			ProviderAccountID: in.ProviderAccountID,
			AccessToken:       in.AccessToken,
			RefreshToken:      in.RefreshToken,
			Scope:             in.Scope,
			ExpiresAt:         &in.ExpiresAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		// Lost a race with a concurrent login; update the row that won.
	}
	return errors.New("oauth account upsert did not converge")
}

func updateLoginTokens(tx *gorm.DB, acct *models.OAuthAccount, in LoginIdentity) error {
	updates := map[string]any{
		"provider_account_id": in.ProviderAccountID,
		"access_token":        in.AccessToken,
		"expires_at":          in.ExpiresAt,
		"scope":               in.Scope,
	}
	if in.RefreshToken != "" {
		updates["refresh_token"] = in.RefreshToken
	}
	return tx.Model(acct).Updates(updates).Error
}

// SaveRefreshedToken stores a refreshed token only if the row still holds
// previousAccessToken. It reports false when another writer got there first.
// An empty refreshToken leaves the stored one untouched.
func SaveRefreshedToken(db *gorm.DB, id, previousAccessToken, accessToken, refreshToken string, expiresAt time.Time) (bool, error) {
	updates := map[string]any{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	res := db.Model(&models.OAuthAccount{}).
		Where("id = ? AND access_token = ?", id, previousAccessToken).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
