package repository

// Schema is the PostgreSQL schema. Every statement is idempotent.
//
// votes.single_choice is copied from the question at insert time so the
// partial unique index can enforce one vote per (user, question) for
// single-choice questions without a trigger.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    is_superuser  BOOLEAN NOT NULL DEFAULT FALSE,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_username_key UNIQUE (username),
    CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS polls (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    is_public   BOOLEAN NOT NULL DEFAULT TRUE,
    is_closed   BOOLEAN NOT NULL DEFAULT FALSE,
    expires_at  TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_polls_created ON polls (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_polls_owner ON polls (owner_id);

CREATE TABLE IF NOT EXISTS questions (
    id          TEXT PRIMARY KEY,
    poll_id     TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    text        TEXT NOT NULL,
    choice_mode TEXT NOT NULL CHECK (choice_mode IN ('SINGLE', 'MULTIPLE')),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_questions_poll ON questions (poll_id, created_at DESC);

CREATE TABLE IF NOT EXISTS options (
    id          TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    text        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_options_question ON options (question_id);

CREATE TABLE IF NOT EXISTS votes (
    id            TEXT PRIMARY KEY,
    option_id     TEXT NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    question_id   TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    single_choice BOOLEAN NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_votes_single_choice
    ON votes (user_id, question_id) WHERE single_choice;
CREATE INDEX IF NOT EXISTS idx_votes_option ON votes (option_id);
CREATE INDEX IF NOT EXISTS idx_votes_user_question ON votes (user_id, question_id);
`

// DropSchema removes every table created by Schema. Used by tests.
const DropSchema = `
DROP TABLE IF EXISTS votes;
DROP TABLE IF EXISTS options;
DROP TABLE IF EXISTS questions;
DROP TABLE IF EXISTS polls;
DROP TABLE IF EXISTS users;
`
