package index

// Schema contains the SQL schema for the email search index.
//
// The documents table is keyed by a store-assigned uuid; message_id carries
// the protocol identifier used for application-level dedup lookups. The FTS
// table is standalone and maintained by the write paths rather than by
// triggers, since the primary key is textual.
const Schema = `
CREATE TABLE IF NOT EXISTS emails (
    id TEXT PRIMARY KEY,
    message_id TEXT DEFAULT '',
    subject TEXT DEFAULT '',
    sender TEXT DEFAULT '',
    recipients TEXT DEFAULT '',
    date TEXT DEFAULT '',
    body_text TEXT DEFAULT '',
    body_html TEXT DEFAULT '',
    folder TEXT DEFAULT '',
    account_id TEXT DEFAULT '',
    category TEXT DEFAULT '',
    reply_text TEXT DEFAULT '',
    reply_generated_at TEXT DEFAULT '',
    indexed_at TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_emails_message_id ON emails(message_id);
CREATE INDEX IF NOT EXISTS idx_emails_account_id ON emails(account_id);
CREATE INDEX IF NOT EXISTS idx_emails_folder ON emails(folder);
CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date);
CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);

CREATE VIRTUAL TABLE IF NOT EXISTS emails_fts USING fts5(
    doc_id UNINDEXED,
    subject,
    sender,
    body_text
);
`
