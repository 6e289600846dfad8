// Package testhelpers provides seeded databases for adapter and pipeline tests.
package testhelpers

import "fmt"

// Fixture shape: FixtureMemberCount members, odd USER_NO are GOLD and even
// are SILVER. Every third user is registered in OKTA_USERS. Users whose
// USER_NO is divisible by 5 have a test.internal email.
const (
	FixtureMemberCount  = 40
	FixtureMemberIDBase = 1000
)

// FixtureStatements returns portable DDL and inserts for the fixture; the SQL
// is valid for SQLite and PostgreSQL.
func FixtureStatements() []string {
	stmts := []string{
		`CREATE TABLE MEMBERS (
			USER_NO INTEGER NOT NULL,
			MEMBER_ID INTEGER NOT NULL,
			MEMBER_TYPE VARCHAR(20) NOT NULL,
			EMAIL VARCHAR(100),
			STATUS VARCHAR(10) NOT NULL
		)`,
		`CREATE TABLE OKTA_USERS (
			USER_NO INTEGER NOT NULL,
			REGISTERED VARCHAR(1) NOT NULL
		)`,
		`CREATE TABLE MEMBER_ORDERS (
			MEMBER_ID INTEGER NOT NULL,
			ORDER_TOTAL INTEGER NOT NULL
		)`,
	}
	for i := 1; i <= FixtureMemberCount; i++ {
		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO MEMBERS (USER_NO, MEMBER_ID, MEMBER_TYPE, EMAIL, STATUS) VALUES (%d, %d, '%s', '%s', 'ACTIVE')",
			i, FixtureMemberIDBase+i, FixtureMemberType(i), FixtureEmail(i)))

		registered := "N"
		if FixtureRegistered(i) {
			registered = "Y"
		}
		stmts = append(stmts, fmt.Sprintf("INSERT INTO OKTA_USERS (USER_NO, REGISTERED) VALUES (%d, '%s')", i, registered))
		stmts = append(stmts, fmt.Sprintf("INSERT INTO MEMBER_ORDERS (MEMBER_ID, ORDER_TOTAL) VALUES (%d, %d)", FixtureMemberIDBase+i, i*10))
	}
	return stmts
}

// FixtureMemberType is the MEMBER_TYPE of user n.
func FixtureMemberType(n int) string {
	if n%2 == 1 {
		return "GOLD"
	}
	return "SILVER"
}

// FixtureEmail is the EMAIL of user n.
func FixtureEmail(n int) string {
	if n%5 == 0 {
		return fmt.Sprintf("user%d@test.internal", n)
	}
	return fmt.Sprintf("user%d@example.com", n)
}

// FixtureRegistered reports whether user n is flagged in OKTA_USERS.
func FixtureRegistered(n int) bool {
	return n%3 == 0
}
