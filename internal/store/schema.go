package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
    key                  TEXT PRIMARY KEY,
    data                 BLOB NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_events (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    op                   TEXT NOT NULL,
    slug                 TEXT,
    ok                   INTEGER NOT NULL,
    message              TEXT,
    at                   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_events_op ON sync_events(op, at);
`
