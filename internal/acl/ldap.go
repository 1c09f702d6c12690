// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package acl

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"github.com/zedis/zedis/pkg/log"
)

// LdapConfig configures optional LDAP-backed user discovery, pared down
// to what SyncLDAP needs: a bind URL, an admin bind DN/password, and the search
// base/filter to enumerate usernames under.
type LdapConfig struct {
	URL           string
	BindDN        string
	BindPassword  string
	UserBase      string
	UserFilter    string
	DefaultCmds   []string
	RemoveMissing bool
}

// SyncLDAP discovers usernames via an LDAP search and adds any not yet
// known to g, granting them cfg.DefaultCmds. Existing users already
// registered in g are left untouched — Sync only ever adds ACL
// principals, on the assumption passwords for LDAP-sourced accounts are
// managed by LDAP itself, not by AddUser's bcrypt hash. If
// cfg.RemoveMissing is set, local users not found in this sync pass are
// removed.
func (g *Gate) SyncLDAP(cfg LdapConfig) error {
	conn, err := ldap.DialURL(cfg.URL)
	if err != nil {
		return fmt.Errorf("ACL: ldap dial: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
		return fmt.Errorf("ACL: ldap bind: %w", err)
	}

	result, err := conn.Search(ldap.NewSearchRequest(
		cfg.UserBase, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		cfg.UserFilter, []string{"uid"}, nil))
	if err != nil {
		return fmt.Errorf("ACL: ldap search: %w", err)
	}

	seen := make(map[string]bool, len(result.Entries))
	for _, entry := range result.Entries {
		username := entry.GetAttributeValue("uid")
		if username == "" {
			return errors.New("ACL: ldap entry missing 'uid' attribute")
		}
		seen[username] = true

		g.mu.RLock()
		_, known := g.users[username]
		g.mu.RUnlock()
		if known {
			continue
		}

		log.Debugf("ACL: ldap sync adding user %q", username)
		if err := g.AddUser(username, randomPlaceholderPassword(), cfg.DefaultCmds); err != nil {
			return fmt.Errorf("ACL: adding ldap user %q: %w", username, err)
		}
	}

	if cfg.RemoveMissing {
		g.mu.Lock()
		for username := range g.users {
			if !seen[username] {
				log.Debugf("ACL: ldap sync removing user %q (no longer present)", username)
				delete(g.users, username)
			}
		}
		g.mu.Unlock()
	}

	return nil
}

// randomPlaceholderPassword stands in for an LDAP-sourced user's local
// password: authentication for these accounts happens against LDAP
// itself in a full deployment, never against this bcrypt hash, so its
// exact value is immaterial as long as it is unguessable.
func randomPlaceholderPassword() string {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "ldap-managed-account"
	}
	return fmt.Sprintf("%x", buf)
}
