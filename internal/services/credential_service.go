package services

import (
	"errors"
	"strings"

	"woo-sync/internal/encryption"
	"woo-sync/internal/models"
	"woo-sync/internal/woocommerce"

	"gorm.io/gorm"
)

// CredentialService stores WooCommerce API credentials per platform,
// encrypting the consumer secret at rest.
type CredentialService struct {
	db         *gorm.DB
	encryption encryption.Service
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(db *gorm.DB, encryptionSvc encryption.Service) *CredentialService {
	return &CredentialService{db: db, encryption: encryptionSvc}
}

// Get returns the stored credential row for a platform, or nil when none
// exists. The consumer secret stays encrypted.
func (s *CredentialService) Get(platform string) (*models.PlatformCredential, error) {
	var credential models.PlatformCredential
	if err := s.db.Where("platform = ?", platform).First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credential, nil
}

// Upsert stores or replaces the credentials for a platform. The secret's
// digest is kept alongside the ciphertext so an unchanged secret can be
// detected without decrypting; AES-GCM output is nonce-randomized, so an
// unchanged secret would otherwise get a new ciphertext on every write.
func (s *CredentialService) Upsert(platform, baseURL, consumerKey, consumerSecret string) (*models.PlatformCredential, error) {
	secretHash := s.encryption.Hash(consumerSecret)

	existing, err := s.Get(platform)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		encrypted, err := s.encryption.Encrypt(consumerSecret)
		if err != nil {
			return nil, err
		}
		created := models.PlatformCredential{
			Platform:       platform,
			BaseURL:        baseURL,
			ConsumerKey:    consumerKey,
			ConsumerSecret: encrypted,
			SecretHash:     secretHash,
		}
		if err := s.db.Create(&created).Error; err != nil {
			return nil, err
		}
		return &created, nil
	}

	updates := map[string]any{
		"base_url":     baseURL,
		"consumer_key": consumerKey,
	}
	if existing.SecretHash != secretHash {
		encrypted, err := s.encryption.Encrypt(consumerSecret)
		if err != nil {
			return nil, err
		}
		updates["consumer_secret"] = encrypted
		updates["secret_hash"] = secretHash
	}
	if err := s.db.Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(platform)
}

// Resolve returns decrypted, ready-to-use client credentials for a
// platform. Absent or incomplete credentials yield nil without error; the
// scheduler treats that as a quiet skip rather than a failure.
func (s *CredentialService) Resolve(platform string) (*woocommerce.Credentials, error) {
	credential, err := s.Get(platform)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		return nil, nil
	}
	if credential.BaseURL == "" || credential.ConsumerKey == "" || credential.ConsumerSecret == "" {
		return nil, nil
	}

	secret, err := s.encryption.Decrypt(credential.ConsumerSecret)
	if err != nil {
		return nil, err
	}

	return &woocommerce.Credentials{
		BaseURL:        strings.TrimRight(credential.BaseURL, "/"),
		ConsumerKey:    credential.ConsumerKey,
		ConsumerSecret: secret,
	}, nil
}
