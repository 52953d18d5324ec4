// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"encoding/json"
	"os"

	"github.com/pamt/dropbot/upbit"
)

type Secrets struct {
	Upbit *upbit.Credentials `json:"upbit"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Upbit != nil {
		if err := v.Upbit.Check(); err != nil {
			return err
		}
	}
	return nil
}
