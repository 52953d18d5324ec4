// Copyright (c) 2025 BVK Chaitanya

package upbit

import (
	"fmt"
	"os"
)

// Credentials holds the Upbit Open API key pair. Keys are only required for
// account and order operations; quote apis are public.
type Credentials struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

func (c *Credentials) Check() error {
	if len(c.AccessKey) == 0 {
		return fmt.Errorf("upbit access key is empty: %w", os.ErrInvalid)
	}
	if len(c.SecretKey) == 0 {
		return fmt.Errorf("upbit secret key is empty: %w", os.ErrInvalid)
	}
	return nil
}
