// Package seed bootstraps a development database with a minimal data set.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/kekeligroup/backoffice/internal/client/domain"
	userdomain "github.com/kekeligroup/backoffice/internal/user/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail  = "admin@kekeligroup.com"
	defaultClientName  = "Client Demo"
	defaultClientEmail = "demo@kekeligroup.com"
)

// EnsureDevData seeds an admin observer and a demo client so the billing
// flows are exercisable on a fresh development database.
func EnsureDevData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAdminTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureDemoClientTx(ctx, tx, node)
	})
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var user userdomain.User
	err := tx.WithContext(ctx).
		Where("email = ?", defaultAdminEmail).
		First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.WithContext(ctx).Create(&userdomain.User{
		ID:        node.Generate(),
		Email:     defaultAdminEmail,
		FirstName: "Admin",
		LastName:  "Kekeli",
		Role:      userdomain.RoleAdmin,
		Active:    true,
	}).Error
}

func ensureDemoClientTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var client clientdomain.Client
	err := tx.WithContext(ctx).
		Where("email = ?", defaultClientEmail).
		First(&client).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.WithContext(ctx).Create(&clientdomain.Client{
		ID:    node.Generate(),
		Name:  defaultClientName,
		Email: defaultClientEmail,
	}).Error
}
