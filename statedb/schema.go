package statedb

import "strings"

var (
	strZeroBytes32 = strings.Repeat("0", 64)

	// One row per escrow, updated on every checkpoint. uint64 values are
	// stored as decimal text: database/sql rejects uint64 arguments with the
	// high bit set.
	escrowTable = `CREATE TABLE IF NOT EXISTS escrow (
		id CHAR(64) PRIMARY KEY NOT NULL,
		leg VARCHAR(3) NOT NULL,
		orderHash CHAR(64) NOT NULL,
		hashlock CHAR(64) NOT NULL,
		maker VARCHAR(90) NOT NULL,
		taker VARCHAR(90) NOT NULL,
		token VARCHAR(90) NOT NULL,
		amount VARCHAR(20) NOT NULL,
		safetyDeposit VARCHAR(20) NOT NULL,
		offsets BLOB NOT NULL,
		deployedAt VARCHAR(20) NOT NULL,
		rescueDelay VARCHAR(20) NOT NULL,
		tokenBalance VARCHAR(20) NOT NULL,
		nativeBalance VARCHAR(20) NOT NULL,
		status VARCHAR(10) NOT NULL,
		CONSTRAINT chk_leg CHECK (leg IN ('src', 'dst')),
		CONSTRAINT chk_status CHECK (status IN ('active', 'withdrawn', 'cancelled')),
		CONSTRAINT chk_amount CHECK (amount != '0'),
		CONSTRAINT chk_id CHECK (id != '` + strZeroBytes32 + `')
	);`

	orderTable = `CREATE TABLE IF NOT EXISTS orders (
		id CHAR(64) PRIMARY KEY NOT NULL,
		total VARCHAR(20) NOT NULL,
		remaining VARCHAR(20) NOT NULL,
		parts INTEGER NOT NULL,
		root CHAR(60) NOT NULL,
		fillCount INTEGER NOT NULL,
		completed BOOLEAN NOT NULL,
		CONSTRAINT chk_parts CHECK (parts >= 2)
	);`

	fillTable = `CREATE TABLE IF NOT EXISTS fills (
		orderId CHAR(64) NOT NULL,
		idx INTEGER NOT NULL,
		amount VARCHAR(20) NOT NULL,
		timestamp VARCHAR(20) NOT NULL,
		filler VARCHAR(90) NOT NULL,
		cumulative VARCHAR(20) NOT NULL,
		PRIMARY KEY (orderId, idx)
	);`

	// order id <-> escrow id, one escrow per leg
	orderEscrowTable = `CREATE TABLE IF NOT EXISTS order_escrow (
		orderId CHAR(64) NOT NULL,
		leg VARCHAR(3) NOT NULL,
		escrowId CHAR(64) UNIQUE NOT NULL,
		PRIMARY KEY (orderId, leg)
	);`

	// replay set of the merkle validator, keyed by hash(orderId || index)
	revealedTable = `CREATE TABLE IF NOT EXISTS revealed (
		key CHAR(64) PRIMARY KEY NOT NULL
	);`

	// keyed by hash(orderId || root)
	lastValidatedTable = `CREATE TABLE IF NOT EXISTS last_validated (
		key CHAR(64) PRIMARY KEY NOT NULL,
		idx INTEGER NOT NULL,
		secretHash CHAR(64) NOT NULL
	);`

	eventTable = `CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind VARCHAR(32) NOT NULL,
		subject CHAR(64) NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_subject ON events (subject);`

	escrowParamList = " id, leg, orderHash, hashlock, maker, taker, token, amount, safetyDeposit, offsets, deployedAt, rescueDelay, tokenBalance, nativeBalance, status "
	orderParamList  = " id, total, remaining, parts, root, fillCount, completed "
	fillParamList   = " orderId, idx, amount, timestamp, filler, cumulative "
)
