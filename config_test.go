package main

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server != defaultServer || c.Driver != defaultDriver || c.UserHeader != defaultUserHeader {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", c.TokenTTL)
	}
	if err := c.validateServer(); err == nil {
		t.Error("validateServer() accepted a missing token secret")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]interface{}
		wantErr bool
	}{
		{"unknown driver", map[string]interface{}{"database.driver": "mongo"}, true},
		{"postgres needs a dsn", map[string]interface{}{"database.driver": "postgres", "database.dsn": ""}, true},
		{"memory needs no dsn", map[string]interface{}{"database.driver": "memory", "database.dsn": ""}, false},
		{"driver is case insensitive", map[string]interface{}{"database.driver": " Pebble "}, false},
		{"site url must be a url", map[string]interface{}{"site.url": "forum"}, true},
		{"site url", map[string]interface{}{"site.url": "https://forum.example.com/"}, false},
		{"bad log level", map[string]interface{}{"log.level": "loud"}, true},
		{"ttl must be positive", map[string]interface{}{"token.ttl": "0s"}, true},
		{"short secret is only checked for the server", map[string]interface{}{"token.secret": "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTrimsSiteURL(t *testing.T) {
	v := NewViper()
	v.Set("site.url", "https://forum.example.com/")
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.SiteURL != "https://forum.example.com" {
		t.Errorf("SiteURL = %q", c.SiteURL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("USERNOTES_DATABASE_DRIVER", "memory")
	t.Setenv("USERNOTES_TOKEN_SECRET", "0123456789abcdef")
	c, err := Load(NewViper())
	if err != nil {
		t.Fatal(err)
	}
	if c.Driver != "memory" {
		t.Errorf("Driver = %q", c.Driver)
	}
	if err := c.validateServer(); err != nil {
		t.Errorf("validateServer() error = %v", err)
	}
}
