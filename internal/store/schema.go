package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stats_meta (
    id                     INTEGER PRIMARY KEY CHECK (id = 1),
    version                INTEGER NOT NULL,
    last_computed_date     TEXT NOT NULL,
    total_sessions         INTEGER NOT NULL,
    total_messages         INTEGER NOT NULL,
    first_session_date     TEXT,
    longest_session_id     TEXT,
    longest_duration_ms    INTEGER,
    longest_message_count  INTEGER,
    longest_timestamp      TEXT,
    speculation_saved_ms   INTEGER NOT NULL DEFAULT 0,
    saved_at               TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_activity (
    date                   TEXT PRIMARY KEY,
    message_count          INTEGER NOT NULL,
    session_count          INTEGER NOT NULL,
    tool_call_count        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_model_tokens (
    date                   TEXT NOT NULL,
    model                  TEXT NOT NULL,
    output_tokens          INTEGER NOT NULL,
    PRIMARY KEY (date, model)
);

CREATE TABLE IF NOT EXISTS model_usage (
    model                        TEXT PRIMARY KEY,
    input_tokens                 INTEGER NOT NULL,
    output_tokens                INTEGER NOT NULL,
    cache_read_input_tokens      INTEGER NOT NULL,
    cache_creation_input_tokens  INTEGER NOT NULL,
    web_search_requests          INTEGER NOT NULL,
    cost_usd                     REAL NOT NULL DEFAULT 0,
    context_window               INTEGER NOT NULL DEFAULT 0,
    max_output_tokens            INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS hour_counts (
    hour                   TEXT PRIMARY KEY,
    count                  INTEGER NOT NULL
);
`
