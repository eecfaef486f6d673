package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRedirectURL is used when a bank entry does not configure its own.
const DefaultRedirectURL = "https://localhost:3000/callback"

// BankConfig holds the aggregator credentials for one configured bank.
type BankConfig struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Country        string `yaml:"country"`
	AppID          string `yaml:"app_id"`
	PrivateKeyFile string `yaml:"private_key_file"`
	PrivateKey     []byte `yaml:"-"`
	RedirectURL    string `yaml:"redirect_url"`
}

// BanksFile is the on-disk shape of the bank credentials file.
type BanksFile struct {
	Banks []BankConfig `yaml:"banks"`
}

// FindBanksFile looks for the bank credentials file in standard locations:
// the given path as-is, the current directory, ./config/, and
// ~/.config/bankfeed/.
func FindBanksFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".config", "bankfeed", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// LoadBanks reads and validates the bank credentials file. Private keys
// referenced by private_key_file are read relative to the banks file.
func LoadBanks(filename string) ([]BankConfig, error) {
	path, err := FindBanksFile(filename)
	if err != nil {
		return nil, fmt.Errorf("banks file not found: %s", filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading banks file: %w", err)
	}

	var file BanksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing banks file: %w", err)
	}
	if len(file.Banks) == 0 {
		return nil, fmt.Errorf("banks file %s contains no banks", path)
	}

	baseDir := filepath.Dir(path)
	for i := range file.Banks {
		bank := &file.Banks[i]
		if bank.ID == "" || bank.Name == "" || bank.Country == "" || bank.AppID == "" || bank.PrivateKeyFile == "" {
			return nil, fmt.Errorf("bank entry %d is missing required fields (id, name, country, app_id, private_key_file)", i)
		}
		if bank.RedirectURL == "" {
			bank.RedirectURL = DefaultRedirectURL
		}

		keyPath := bank.PrivateKeyFile
		if !filepath.IsAbs(keyPath) {
			keyPath = filepath.Join(baseDir, keyPath)
		}
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("error reading private key for bank %s: %w", bank.ID, err)
		}
		bank.PrivateKey = key
	}

	return file.Banks, nil
}

// FindBank returns the bank with the given id, or an error listing the
// available ids.
func FindBank(banks []BankConfig, id string) (*BankConfig, error) {
	for i := range banks {
		if banks[i].ID == id {
			return &banks[i], nil
		}
	}
	available := make([]string, 0, len(banks))
	for _, b := range banks {
		available = append(available, b.ID)
	}
	return nil, fmt.Errorf("unknown bank %q, available: %v", id, available)
}
