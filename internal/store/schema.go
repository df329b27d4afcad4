package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS budgets (
    id                   TEXT PRIMARY KEY,
    owner_id             TEXT NOT NULL,
    name                 TEXT NOT NULL,
    total                TEXT NOT NULL,
    start_at             TEXT,
    end_at               TEXT,
    period               TEXT NOT NULL,
    status               TEXT NOT NULL,
    created_at           TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS category_limits (
    budget_id            TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
    category             TEXT NOT NULL,
    allocated            TEXT NOT NULL,
    spent                TEXT NOT NULL,
    updated_at           TEXT,
    PRIMARY KEY (budget_id, category)
);

CREATE TABLE IF NOT EXISTS expenses (
    id                   TEXT PRIMARY KEY,
    budget_id            TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
    category             TEXT NOT NULL,
    owner_id             TEXT NOT NULL,
    business_id          TEXT,
    amount               TEXT NOT NULL,
    method               TEXT NOT NULL,
    at                   TEXT NOT NULL,
    note                 TEXT
);

CREATE TABLE IF NOT EXISTS categories (
    name                 TEXT PRIMARY KEY,
    usage                TEXT NOT NULL,
    business_type        TEXT,
    description          TEXT
);

CREATE TABLE IF NOT EXISTS businesses (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    type                 TEXT NOT NULL,
    lat                  REAL NOT NULL,
    lon                  REAL NOT NULL,
    address              TEXT,
    city                 TEXT,
    country              TEXT,
    price_min            TEXT NOT NULL,
    price_max            TEXT NOT NULL,
    price_avg            TEXT NOT NULL,
    rating               REAL,
    review_count         INTEGER NOT NULL DEFAULT 0,
    active               INTEGER NOT NULL DEFAULT 1,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS business_categories (
    business_id          TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
    category             TEXT NOT NULL,
    position             INTEGER NOT NULL,
    PRIMARY KEY (business_id, category)
);

CREATE TABLE IF NOT EXISTS reviews (
    id                   TEXT PRIMARY KEY,
    business_id          TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
    user_id              TEXT NOT NULL,
    score                INTEGER NOT NULL,
    comment              TEXT,
    verified             INTEGER NOT NULL DEFAULT 0,
    at                   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS suggestions (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    budget_id            TEXT,
    type                 TEXT NOT NULL,
    confidence           REAL NOT NULL,
    payload              TEXT NOT NULL,
    applied              INTEGER NOT NULL DEFAULT 0,
    applied_at           TEXT,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS searches (
    id                   TEXT PRIMARY KEY,
    owner_id             TEXT NOT NULL,
    at                   TEXT NOT NULL,
    lat                  REAL NOT NULL,
    lon                  REAL NOT NULL,
    radius_m             REAL NOT NULL,
    budget               TEXT NOT NULL,
    categories           TEXT NOT NULL,
    min_rating           REAL,
    results              INTEGER NOT NULL,
    selected_id          TEXT
);

CREATE INDEX IF NOT EXISTS idx_budgets_owner ON budgets(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_budgets_end ON budgets(end_at);
CREATE INDEX IF NOT EXISTS idx_expenses_budget ON expenses(budget_id, at);
CREATE INDEX IF NOT EXISTS idx_expenses_owner ON expenses(owner_id, at);
CREATE INDEX IF NOT EXISTS idx_reviews_business ON reviews(business_id);
CREATE INDEX IF NOT EXISTS idx_suggestions_user ON suggestions(user_id, applied);
CREATE INDEX IF NOT EXISTS idx_searches_owner ON searches(owner_id, at);
`
