package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/phobologic/astmap/internal/model"
)

// SQLite stores catalogs in a SQLite database, one set of rows per catalog
// source. Storing a catalog replaces whatever was stored for its source.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classes (
		source TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		rank REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (source, position)
	);

	CREATE TABLE IF NOT EXISTS bases (
		source TEXT NOT NULL,
		class_position INTEGER NOT NULL,
		position INTEGER NOT NULL,
		access TEXT NOT NULL,
		base TEXT NOT NULL,
		PRIMARY KEY (source, class_position, access, position),
		FOREIGN KEY (source, class_position) REFERENCES classes(source, position) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS methods (
		source TEXT NOT NULL,
		class_position INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		signature TEXT NOT NULL,
		used INTEGER NOT NULL,
		PRIMARY KEY (source, class_position, position),
		FOREIGN KEY (source, class_position) REFERENCES classes(source, position) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS structs (
		source TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (source, position)
	);

	CREATE TABLE IF NOT EXISTS variables (
		source TEXT NOT NULL,
		struct_position INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (source, struct_position, position),
		FOREIGN KEY (source, struct_position) REFERENCES structs(source, position) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_classes_name ON classes(name);
	CREATE INDEX IF NOT EXISTS idx_bases_base ON bases(base);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Store writes cat under cat.Source inside one transaction.
func (s *SQLite) Store(ctx context.Context, cat *model.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"classes", "structs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE source = ?", cat.Source); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for ci, c := range cat.Classes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO classes (source, position, name, rank) VALUES (?, ?, ?, ?)",
			cat.Source, ci, c.Name, c.Rank); err != nil {
			return fmt.Errorf("storing class %s: %w", c.Name, err)
		}
		for _, list := range []struct {
			access model.Access
			bases  []string
		}{
			{model.Public, c.Inherited.Public},
			{model.Private, c.Inherited.Private},
			{model.Protected, c.Inherited.Protected},
		} {
			for bi, base := range list.bases {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO bases (source, class_position, position, access, base) VALUES (?, ?, ?, ?, ?)",
					cat.Source, ci, bi, string(list.access), base); err != nil {
					return fmt.Errorf("storing base %s of %s: %w", base, c.Name, err)
				}
			}
		}
		for mi, m := range c.Methods {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO methods (source, class_position, position, name, signature, used) VALUES (?, ?, ?, ?, ?, ?)",
				cat.Source, ci, mi, m.Name, m.Signature, m.Used); err != nil {
				return fmt.Errorf("storing method %s of %s: %w", m.Name, c.Name, err)
			}
		}
	}

	for si, st := range cat.Structs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO structs (source, position, name) VALUES (?, ?, ?)",
			cat.Source, si, st.Name); err != nil {
			return fmt.Errorf("storing struct %s: %w", st.Name, err)
		}
		for vi, v := range st.Variables {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO variables (source, struct_position, position, name, type) VALUES (?, ?, ?, ?, ?)",
				cat.Source, si, vi, v.Name, v.Type); err != nil {
				return fmt.Errorf("storing field %s of %s: %w", v.Name, st.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads back the catalog stored for source. An unknown source yields an
// empty catalog.
func (s *SQLite) Load(ctx context.Context, source string) (*model.Catalog, error) {
	cat := model.NewCatalog(source)

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, rank FROM classes WHERE source = ? ORDER BY position", source)
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.Name, &c.Rank); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		c.Methods = []model.Method{}
		cat.Classes = append(cat.Classes, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT class_position, access, base FROM bases WHERE source = ? ORDER BY class_position, position", source)
	if err != nil {
		return nil, fmt.Errorf("loading bases: %w", err)
	}
	for rows.Next() {
		var (
			ci     int
			access string
			base   string
		)
		if err := rows.Scan(&ci, &access, &base); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning base: %w", err)
		}
		if ci < len(cat.Classes) {
			cat.Classes[ci].Inherited.Add(model.Access(access), base)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading bases: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT class_position, name, signature, used FROM methods WHERE source = ? ORDER BY class_position, position", source)
	if err != nil {
		return nil, fmt.Errorf("loading methods: %w", err)
	}
	for rows.Next() {
		var (
			ci int
			m  model.Method
		)
		if err := rows.Scan(&ci, &m.Name, &m.Signature, &m.Used); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning method: %w", err)
		}
		if ci < len(cat.Classes) {
			cat.Classes[ci].Methods = append(cat.Classes[ci].Methods, m)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading methods: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT name FROM structs WHERE source = ? ORDER BY position", source)
	if err != nil {
		return nil, fmt.Errorf("loading structs: %w", err)
	}
	for rows.Next() {
		var st model.Struct
		if err := rows.Scan(&st.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning struct: %w", err)
		}
		st.Variables = []model.Variable{}
		cat.Structs = append(cat.Structs, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading structs: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT struct_position, name, type FROM variables WHERE source = ? ORDER BY struct_position, position", source)
	if err != nil {
		return nil, fmt.Errorf("loading variables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			si int
			v  model.Variable
		)
		if err := rows.Scan(&si, &v.Name, &v.Type); err != nil {
			return nil, fmt.Errorf("scanning variable: %w", err)
		}
		if si < len(cat.Structs) {
			cat.Structs[si].Variables = append(cat.Structs[si].Variables, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading variables: %w", err)
	}

	return cat, nil
}

// Sources lists the catalog sources stored in the database.
func (s *SQLite) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source FROM classes UNION SELECT source FROM structs ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
