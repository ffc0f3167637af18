// Package keys builds the lexicographically sortable composite keys used by
// every store.
//
// Database Key Namespace Design
// =============================
//
// The persistence layer shares one ordered key space, organized with short
// namespace prefixes. This prevents collisions between row types, keeps range
// scans cheap (one prefix per listing), and makes the database structure
// self-documenting.
//
// Row Type                  Prefix  Key Format                                     Value
// ====================================================================================
// File                      "f:"    f:<kind>~<key>                                 File (JSON)
// File kind lookup          "fk:"   fk:<key>                                       kind (bytes)
// Permission                "p:"    p:<permissionId>                               Permission (JSON)
// Shared link               "s:"    s:<kind>~<targetUser>~<fileKey>                SharedLink (JSON)
// History primary           "h:"    h:~<ISO8601>~<user>~<nonce>                    HttpHistory (JSON)
// History space index       "hs:"   hs:~<space>~<ISO8601>~<nonce>                  primary key (bytes)
// History project index     "hp:"   hp:~<space>~<project>~<ISO8601>~<nonce>        primary key (bytes)
// History request index     "hr:"   hr:~<space>~<request>~<ISO8601>~<nonce>        primary key (bytes)
// History app index         "ha:"   ha:~<app>~<user>~<ISO8601>~<nonce>             primary key (bytes)
// Bin (deletion log)        "b:"    b:~del~<kind>~<key>                            BinEntry (JSON)
// Revision                  "r:"    r:<fileKey>~<ISO8601>~<nonce>                  Revision (JSON)
// User                      "u:"    u:<userKey>                                    User (JSON)
// Project media             "m:"    m:<projectKey>                                 raw JSON
//
// Timestamps are RFC 3339 in UTC, so ascending lexicographic order is
// chronological and a reverse scan yields newest-first. The nonce breaks
// sub-second ties. The app index embeds the user because apps are private to
// their user; the space/project/request indexes are space-scoped because
// sharing a space shares its history.
//
// All functions here are pure: callers supply timestamps and nonces, which
// keeps key generation deterministic under test.
package keys

import (
	"encoding/base64"
	"strings"
	"time"
)

// Sep separates segments within a composite key.
const Sep = "~"

// delPrefix marks deletion-log keys.
const delPrefix = Sep + "del" + Sep

// Namespace prefixes.
const (
	nsFile           = "f:"
	nsFileLookup     = "fk:"
	nsPermission     = "p:"
	nsShared         = "s:"
	nsHistory        = "h:"
	nsHistorySpace   = "hs:"
	nsHistoryProject = "hp:"
	nsHistoryRequest = "hr:"
	nsHistoryApp     = "ha:"
	nsBin            = "b:"
	nsRevision       = "r:"
	nsUser           = "u:"
	nsMedia          = "m:"
)

// timestamp renders t as sortable RFC 3339 UTC.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// File returns the primary row key for a file of the given kind.
func File(kind, key string) []byte {
	return []byte(nsFile + kind + Sep + key)
}

// FileKindPrefix returns the scan prefix covering every file of a kind.
func FileKindPrefix(kind string) []byte {
	return []byte(nsFile + kind + Sep)
}

// FileLookup returns the kind-lookup row key for a file. File keys are
// globally unique; this row maps a bare key to its kind so access checks and
// ancestor walks can resolve a file without knowing its kind.
func FileLookup(key string) []byte {
	return []byte(nsFileLookup + key)
}

// Permission returns the row key for a permission record.
func Permission(id string) []byte {
	return []byte(nsPermission + id)
}

// SharedLink returns the row key for a "file shared with user" link.
func SharedLink(kind, targetUser, fileKey string) []byte {
	return []byte(nsShared + kind + Sep + targetUser + Sep + fileKey)
}

// SharedUserPrefix returns the scan prefix covering every link of a kind
// granted to one user.
func SharedUserPrefix(kind, targetUser string) []byte {
	return []byte(nsShared + kind + Sep + targetUser + Sep)
}

// HistoryData returns the raw composite primary key for a history record:
// ~<ISO8601>~<user>~<nonce>. The raw key, base64url-encoded, is the record's
// public identifier.
func HistoryData(created time.Time, user, nonce string) string {
	return Sep + timestamp(created) + Sep + user + Sep + nonce
}

// History returns the primary store row key for a raw history key.
func History(rawKey string) []byte {
	return []byte(nsHistory + rawKey)
}

// HistoryUserPrefix returns the scan prefix for one user's primary history
// rows. Primary keys order by time first, so a plain user scan still has to
// filter by owner; this prefix bounds the scan to the whole primary range.
func HistoryUserPrefix() []byte {
	return []byte(nsHistory + Sep)
}

// HistorySpace returns the space-index row key.
func HistorySpace(space string, created time.Time, nonce string) []byte {
	return []byte(nsHistorySpace + Sep + space + Sep + timestamp(created) + Sep + nonce)
}

// HistorySpacePrefix returns the scan prefix for one space's index rows.
func HistorySpacePrefix(space string) []byte {
	return []byte(nsHistorySpace + Sep + space + Sep)
}

// HistoryProject returns the project-index row key.
func HistoryProject(space, project string, created time.Time, nonce string) []byte {
	return []byte(nsHistoryProject + Sep + space + Sep + project + Sep + timestamp(created) + Sep + nonce)
}

// HistoryProjectPrefix returns the scan prefix for one project's index rows.
func HistoryProjectPrefix(space, project string) []byte {
	return []byte(nsHistoryProject + Sep + space + Sep + project + Sep)
}

// HistoryRequest returns the request-index row key.
func HistoryRequest(space, request string, created time.Time, nonce string) []byte {
	return []byte(nsHistoryRequest + Sep + space + Sep + request + Sep + timestamp(created) + Sep + nonce)
}

// HistoryRequestPrefix returns the scan prefix for one request's index rows.
func HistoryRequestPrefix(space, request string) []byte {
	return []byte(nsHistoryRequest + Sep + space + Sep + request + Sep)
}

// HistoryApp returns the app-index row key. Apps are private to their user,
// so the key embeds the user ahead of the timestamp.
func HistoryApp(app, user string, created time.Time, nonce string) []byte {
	return []byte(nsHistoryApp + Sep + app + Sep + user + Sep + timestamp(created) + Sep + nonce)
}

// HistoryAppPrefix returns the scan prefix for one user's rows under an app.
func HistoryAppPrefix(app, user string) []byte {
	return []byte(nsHistoryApp + Sep + app + Sep + user + Sep)
}

// EncodeHistoryKey converts a raw primary history key into its public,
// base64url (unpadded) form.
func EncodeHistoryKey(rawKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rawKey))
}

// DecodeHistoryKey converts a public history key back to the raw primary
// key. Returns false when the input is not valid base64url or does not look
// like a composite history key.
func DecodeHistoryKey(encoded string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(string(raw), Sep) {
		return "", false
	}
	return string(raw), true
}

// Bin returns the deletion-log row key: a fixed marker prefix plus the
// original key.
func Bin(kind, key string) []byte {
	return []byte(nsBin + delPrefix + kind + Sep + key)
}

// BinKindPrefix returns the scan prefix for one kind's deletion log.
func BinKindPrefix(kind string) []byte {
	return []byte(nsBin + delPrefix + kind + Sep)
}

// Revision returns the row key for a stored revision of a file.
func Revision(fileKey string, created time.Time, nonce string) []byte {
	return []byte(nsRevision + fileKey + Sep + timestamp(created) + Sep + nonce)
}

// RevisionPrefix returns the scan prefix for one file's revisions.
func RevisionPrefix(fileKey string) []byte {
	return []byte(nsRevision + fileKey + Sep)
}

// User returns the row key for a user record.
func User(key string) []byte {
	return []byte(nsUser + key)
}

// UserPrefix returns the scan prefix covering all users.
func UserPrefix() []byte {
	return []byte(nsUser)
}

// Media returns the row key for a project's media body.
func Media(projectKey string) []byte {
	return []byte(nsMedia + projectKey)
}

// HistoryKeyUser extracts the owning user from a raw primary history key.
// Returns false for malformed keys.
func HistoryKeyUser(rawKey string) (string, bool) {
	parts := strings.Split(rawKey, Sep)
	// "", timestamp, user, nonce
	if len(parts) != 4 || parts[0] != "" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
