package lineage

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
	"github.com/leapstack-labs/leaplineage/pkg/dialects/duckdb"
	"github.com/leapstack-labs/leaplineage/pkg/dialects/postgres"
	"github.com/leapstack-labs/leaplineage/pkg/dialects/snowflake"
)

// lineageCase describes the expected lineage of one statement. Nil slices
// and maps expect nothing.
type lineageCase struct {
	name    string
	sql     string
	dialect *dialect.Dialect
	inputs  []string
	outputs []string
	columns map[string][]string
}

func extract(t *testing.T, sql string, opts Options) *Lineage {
	t.Helper()
	l, err := ExtractSQL(sql, opts)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

// columnStrings flattens column lineage to descendant -> sorted ancestor names.
func columnStrings(l *Lineage) map[string][]string {
	out := make(map[string][]string, len(l.Columns))
	for _, c := range l.Columns {
		names := make([]string, len(c.Ancestors))
		for i, a := range c.Ancestors {
			names[i] = a.String()
		}
		out[c.Descendant.String()] = names
	}
	return out
}

func runLineageCases(t *testing.T, tests []lineageCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := extract(t, tt.sql, Options{Dialect: tt.dialect})

			if tt.inputs == nil {
				tt.inputs = []string{}
			}
			if tt.outputs == nil {
				tt.outputs = []string{}
			}
			assert.Equal(t, tt.inputs, l.InputNames(), "inputs")
			assert.Equal(t, tt.outputs, l.OutputNames(), "outputs")

			if tt.columns == nil {
				assert.Empty(t, l.Columns, "columns")
			} else {
				assert.Equal(t, tt.columns, columnStrings(l), "columns")
			}
		})
	}
}

// =============================================================================
// Queries
// =============================================================================

func TestExtractSelect(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "simple select",
			sql:     "SELECT id, name FROM users",
			inputs:  []string{"users"},
			columns: map[string][]string{"id": {"users.id"}, "name": {"users.name"}},
		},
		{
			name: "constant select",
			sql:  "SELECT 1",
		},
		{
			name:   "star select has no column edges",
			sql:    "SELECT * FROM users",
			inputs: []string{"users"},
		},
		{
			name:   "unnamed expression records no edges",
			sql:    "SELECT a + b FROM t",
			inputs: []string{"t"},
		},
		{
			name:    "alias and expression",
			sql:     "SELECT a + b AS total FROM t",
			inputs:  []string{"t"},
			columns: map[string][]string{"total": {"t.a", "t.b"}},
		},
		{
			name:    "case expression",
			sql:     "SELECT CASE WHEN a > 0 THEN b ELSE c END AS r FROM t",
			inputs:  []string{"t"},
			columns: map[string][]string{"r": {"t.a", "t.b", "t.c"}},
		},
		{
			name:    "window function",
			sql:     "SELECT ROW_NUMBER() OVER (PARTITION BY g ORDER BY ts) AS rn FROM t",
			inputs:  []string{"t"},
			columns: map[string][]string{"rn": {"t.g", "t.ts"}},
		},
		{
			name:    "where and group by add no edges",
			sql:     "SELECT a, COUNT(*) AS n FROM t WHERE b > 1 GROUP BY a HAVING COUNT(*) > 2 ORDER BY a",
			inputs:  []string{"t"},
			columns: map[string][]string{"a": {"t.a"}},
		},
		{
			name:    "select into",
			sql:     "SELECT a INTO backup FROM t",
			inputs:  []string{"t"},
			outputs: []string{"backup"},
			columns: map[string][]string{"a": {"t.a"}},
		},
		{
			name:    "qualified names",
			sql:     "SELECT t.a FROM db.s.t",
			inputs:  []string{"db.s.t"},
			columns: map[string][]string{"a": {"db.s.t.a"}},
		},
	})
}

func TestExtractJoins(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "self join keeps one input",
			sql:     "SELECT a.x, b.y FROM t a JOIN t b ON a.id = b.id",
			inputs:  []string{"t"},
			columns: map[string][]string{"x": {"t.x"}, "y": {"t.y"}},
		},
		{
			name:   "aliases resolve to tables",
			sql:    "SELECT o.id, c.name AS customer FROM orders o LEFT JOIN customers c ON o.cid = c.id",
			inputs: []string{"customers", "orders"},
			columns: map[string][]string{
				"customer": {"customers.name"},
				"id":       {"orders.id"},
			},
		},
		{
			name:    "bare column over a join is unattributed",
			sql:     "SELECT id FROM a JOIN b ON a.k = b.k",
			inputs:  []string{"a", "b"},
			columns: map[string][]string{"id": {"id"}},
		},
		{
			name:    "implicit alias of a qualified table",
			sql:     "SELECT u.name FROM app.u JOIN app.v ON u.id = v.id",
			inputs:  []string{"app.u", "app.v"},
			columns: map[string][]string{"name": {"app.u.name"}},
		},
		{
			name:   "lateral subquery",
			sql:    "SELECT t.a, l.b FROM t, LATERAL (SELECT b FROM u WHERE u.id = t.id) l",
			inputs: []string{"t", "u"},
			columns: map[string][]string{
				"a": {"t.a"},
				"b": {"u.b"},
			},
		},
	})
}

func TestExtractSubqueries(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "derived table",
			sql:     "SELECT s.total FROM (SELECT SUM(amount) AS total FROM payments) s",
			inputs:  []string{"payments"},
			columns: map[string][]string{"total": {"payments.amount"}},
		},
		{
			name:    "derived table column aliases",
			sql:     "SELECT q FROM (SELECT a FROM t) AS s (q)",
			inputs:  []string{"t"},
			columns: map[string][]string{"q": {"t.a"}},
		},
		{
			name: "alias shadowing across derived tables",
			sql: `SELECT s1.a, s2.b
				FROM (SELECT x.a FROM t1 x) s1
				JOIN (SELECT x.b FROM t2 x) s2 ON s1.a = s2.b`,
			inputs: []string{"t1", "t2"},
			columns: map[string][]string{
				"a": {"t1.a"},
				"b": {"t2.b"},
			},
		},
		{
			name:   "scalar subquery folds into its column",
			sql:    "SELECT (SELECT v FROM u LIMIT 1) AS m, id FROM t",
			inputs: []string{"t", "u"},
			columns: map[string][]string{
				"id": {"t.id"},
				"m":  {"u.v"},
			},
		},
		{
			name:    "where subquery contributes tables only",
			sql:     "SELECT a FROM t WHERE b IN (SELECT c FROM u)",
			inputs:  []string{"t", "u"},
			columns: map[string][]string{"a": {"t.a"}},
		},
		{
			name:    "exists subquery",
			sql:     "SELECT a FROM t WHERE EXISTS (SELECT 1 FROM u WHERE u.id = t.id)",
			inputs:  []string{"t", "u"},
			columns: map[string][]string{"a": {"t.a"}},
		},
		{
			name:    "derived alias reused inside exists",
			sql:     "SELECT x.c FROM (SELECT c FROM a) x WHERE EXISTS (SELECT 1 FROM (SELECT c FROM b) x)",
			inputs:  []string{"a", "b"},
			columns: map[string][]string{"c": {"a.c"}},
		},
		{
			name: "derived alias reused inside scalar subquery",
			sql: `SELECT x.c, (SELECT x.c FROM (SELECT c FROM b) x) AS m
				FROM (SELECT c FROM a) x`,
			inputs: []string{"a", "b"},
			columns: map[string][]string{
				"c": {"a.c"},
				"m": {"b.c"},
			},
		},
		{
			name:    "bare columns over a derived table",
			sql:     "SELECT c FROM (SELECT c FROM a) x WHERE c IN (SELECT c FROM (SELECT c FROM b) x)",
			inputs:  []string{"a", "b"},
			columns: map[string][]string{"c": {"a.c"}},
		},
	})
}

func TestExtractCTEs(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:   "cte is replaced by its tables",
			sql:    "WITH cte AS (SELECT * FROM real_table) SELECT * FROM cte",
			inputs: []string{"real_table"},
		},
		{
			name:    "chained ctes",
			sql:     "WITH a AS (SELECT x FROM t), b AS (SELECT x AS y FROM a) SELECT y FROM b",
			inputs:  []string{"t"},
			columns: map[string][]string{"y": {"t.x"}},
		},
		{
			name:    "cte column list",
			sql:     "WITH c (k) AS (SELECT id FROM t) SELECT k FROM c",
			inputs:  []string{"t"},
			columns: map[string][]string{"k": {"t.id"}},
		},
		{
			name:    "cte shadowing a table of the same name",
			sql:     "WITH orders AS (SELECT * FROM orders) SELECT id FROM orders",
			inputs:  []string{"orders"},
			columns: map[string][]string{"id": {"orders.id"}},
		},
		{
			name: "recursive cte",
			sql: `WITH RECURSIVE r AS (
					SELECT id FROM base
					UNION ALL
					SELECT id FROM r
				)
				SELECT id FROM r`,
			inputs:  []string{"base"},
			columns: map[string][]string{"id": {"base.id"}},
		},
		{
			name: "cte joined with a table",
			sql: `WITH c AS (SELECT id, v FROM src)
				SELECT c.v, d.w FROM c JOIN dim d ON c.id = d.id`,
			inputs: []string{"dim", "src"},
			columns: map[string][]string{
				"v": {"src.v"},
				"w": {"dim.w"},
			},
		},
		{
			name: "cte name reused in a nested with",
			sql: `WITH q AS (SELECT c FROM a)
				SELECT q.c FROM q
				WHERE q.c IN (WITH q AS (SELECT c FROM b) SELECT c FROM q)`,
			inputs:  []string{"a", "b"},
			columns: map[string][]string{"c": {"a.c"}},
		},
	})
}

func TestExtractSetOperations(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "union maps positionally",
			sql:     "SELECT a FROM t1 UNION ALL SELECT b FROM t2",
			inputs:  []string{"t1", "t2"},
			columns: map[string][]string{"a": {"t1.a", "t2.b"}},
		},
		{
			name:    "parenthesized branches",
			sql:     "(SELECT a FROM t1) UNION ALL (SELECT b FROM t2)",
			inputs:  []string{"t1", "t2"},
			columns: map[string][]string{"a": {"t1.a", "t2.b"}},
		},
		{
			name:    "three branches",
			sql:     "SELECT a FROM t1 UNION SELECT b FROM t2 EXCEPT SELECT c FROM t3",
			inputs:  []string{"t1", "t2", "t3"},
			columns: map[string][]string{"a": {"t1.a", "t2.b", "t3.c"}},
		},
	})
}

// =============================================================================
// DML
// =============================================================================

func TestExtractInsert(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "insert select with alias",
			sql:     "INSERT INTO out SELECT a.x AS y FROM src a",
			inputs:  []string{"src"},
			outputs: []string{"out"},
			columns: map[string][]string{"out.y": {"src.x"}},
		},
		{
			name:    "column list renames positionally",
			sql:     "INSERT INTO out (p, q) SELECT a, b FROM src",
			inputs:  []string{"src"},
			outputs: []string{"out"},
			columns: map[string][]string{"out.p": {"src.a"}, "out.q": {"src.b"}},
		},
		{
			name:    "insert values",
			sql:     "INSERT INTO t VALUES (1, 2)",
			outputs: []string{"t"},
		},
		{
			name:    "insert with cte",
			sql:     "WITH c AS (SELECT a FROM src) INSERT INTO out SELECT a FROM c",
			inputs:  []string{"src"},
			outputs: []string{"out"},
			columns: map[string][]string{"out.a": {"src.a"}},
		},
	})
}

func TestExtractUpdate(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "update from its own columns",
			sql:     "UPDATE t SET a = b + 1 WHERE c > 0",
			outputs: []string{"t"},
			columns: map[string][]string{"t.a": {"t.b"}},
		},
		{
			name:    "update from another table",
			sql:     "UPDATE t SET a = s.b FROM src s WHERE t.id = s.id",
			inputs:  []string{"src"},
			outputs: []string{"t"},
			columns: map[string][]string{"t.a": {"src.b"}},
		},
		{
			name:    "update with target alias",
			sql:     "UPDATE t AS x SET a = s.a, b = 1 FROM s WHERE x.id = s.id",
			inputs:  []string{"s"},
			outputs: []string{"t"},
			columns: map[string][]string{"t.a": {"s.a"}},
		},
		{
			name:    "tuple assignment from subquery",
			sql:     "UPDATE t SET (a, b) = (SELECT x, y FROM s)",
			inputs:  []string{"s"},
			outputs: []string{"t"},
			columns: map[string][]string{
				"t.a": {"s.x", "s.y"},
				"t.b": {"s.x", "s.y"},
			},
		},
		{
			name:    "update join",
			sql:     "UPDATE t JOIN s ON t.id = s.id SET t.a = s.a",
			inputs:  []string{"s"},
			outputs: []string{"t"},
			columns: map[string][]string{"t.a": {"s.a"}},
		},
	})
}

func TestExtractDelete(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "delete with subquery",
			sql:     "DELETE FROM t WHERE id IN (SELECT id FROM s)",
			inputs:  []string{"s"},
			outputs: []string{"t"},
		},
		{
			name:    "delete using",
			sql:     "DELETE FROM t USING s WHERE t.id = s.id",
			inputs:  []string{"s"},
			outputs: []string{"t"},
		},
		{
			name:    "multi table delete",
			sql:     "DELETE t1, t2 FROM t1 JOIN t2 ON t1.id = t2.id",
			outputs: []string{"t1", "t2"},
		},
	})
}

func TestExtractMerge(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name: "update and insert",
			sql: `MERGE INTO t USING s ON t.id = s.id
				WHEN MATCHED THEN UPDATE SET t.v = s.v
				WHEN NOT MATCHED THEN INSERT (id, v) VALUES (s.id, s.v)`,
			inputs:  []string{"s"},
			outputs: []string{"t"},
			columns: map[string][]string{"t.id": {"s.id"}, "t.v": {"s.v"}},
		},
		{
			name: "subquery source",
			sql: `MERGE INTO t USING (SELECT id, v FROM src) x ON t.id = x.id
				WHEN MATCHED THEN UPDATE SET v = x.v`,
			inputs:  []string{"src"},
			outputs: []string{"t"},
			columns: map[string][]string{"t.v": {"src.v"}},
		},
		{
			name: "delete only",
			sql: `MERGE INTO target t USING source s ON t.id = s.id
				WHEN MATCHED AND s.deleted THEN DELETE`,
			inputs:  []string{"source"},
			outputs: []string{"target"},
		},
	})
}

// =============================================================================
// DDL
// =============================================================================

func TestExtractDDL(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "create table as",
			sql:     "CREATE TABLE t2 AS SELECT a, b AS c FROM t1",
			inputs:  []string{"t1"},
			outputs: []string{"t2"},
			columns: map[string][]string{"t2.a": {"t1.a"}, "t2.c": {"t1.b"}},
		},
		{
			name:    "create table like",
			sql:     "CREATE TABLE t LIKE s",
			inputs:  []string{"s"},
			outputs: []string{"t"},
		},
		{
			name:    "create table clone",
			sql:     "CREATE TRANSIENT TABLE t CLONE db.s",
			inputs:  []string{"db.s"},
			outputs: []string{"t"},
		},
		{
			name:    "create table with columns only",
			sql:     "CREATE TABLE t (id INT NOT NULL PRIMARY KEY, name VARCHAR(20))",
			outputs: []string{"t"},
		},
		{
			name:    "create view with column list",
			sql:     "CREATE OR REPLACE VIEW v (x) AS SELECT a FROM t",
			inputs:  []string{"t"},
			outputs: []string{"v"},
			columns: map[string][]string{"v.x": {"t.a"}},
		},
		{
			name:    "alter swap",
			sql:     "ALTER TABLE a SWAP WITH b",
			inputs:  []string{"a", "b"},
			outputs: []string{"a", "b"},
		},
		{
			name:    "alter rename",
			sql:     "ALTER TABLE IF EXISTS a RENAME TO b",
			inputs:  []string{"a"},
			outputs: []string{"b"},
		},
		{
			name:    "alter add column",
			sql:     "ALTER TABLE a ADD COLUMN c INT",
			outputs: []string{"a"},
		},
		{
			name:    "truncate",
			sql:     "TRUNCATE TABLE IF EXISTS a, b RESTART IDENTITY",
			outputs: []string{"a", "b"},
		},
		{
			name:    "drop table",
			sql:     "DROP TABLE t",
			outputs: []string{"t"},
		},
		{
			name: "statement without lineage",
			sql:  "CREATE SCHEMA IF NOT EXISTS analytics",
		},
	})
}

// =============================================================================
// Dialects and options
// =============================================================================

func TestExtractDialects(t *testing.T) {
	runLineageCases(t, []lineageCase{
		{
			name:    "snowflake folds to upper case",
			sql:     "select a from t",
			dialect: snowflake.Snowflake,
			inputs:  []string{"T"},
			columns: map[string][]string{"A": {"T.A"}},
		},
		{
			name:    "quoted identifiers keep case",
			sql:     `SELECT "Id" FROM "Users"`,
			inputs:  []string{"Users"},
			columns: map[string][]string{"Id": {"Users.Id"}},
		},
		{
			name:    "case insensitive dialect folds quoted names",
			sql:     `SELECT "Id" FROM "Users"`,
			dialect: duckdb.DuckDB,
			inputs:  []string{"users"},
			columns: map[string][]string{"id": {"users.id"}},
		},
		{
			name:    "mixed case resolves to one table",
			sql:     "SELECT U.a FROM users u",
			inputs:  []string{"users"},
			columns: map[string][]string{"a": {"users.a"}},
		},
		{
			name:    "pivot reads its source",
			sql:     "SELECT * FROM sales PIVOT (SUM(amount) FOR quarter IN ('Q1', 'Q2')) AS p",
			inputs:  []string{"sales"},
		},
		{
			name:    "unpivot reads its source",
			sql:     "SELECT * FROM wide UNPIVOT (val FOR col IN (a, b, c)) u",
			inputs:  []string{"wide"},
		},
		{
			name: "table function has no lineage",
			sql:  "SELECT * FROM read_csv('f.csv') r",
		},
	})
}

func TestExtractDefaultSchema(t *testing.T) {
	l := extract(t, "SELECT t.a, u.b FROM t JOIN sch.u ON t.id = u.id", Options{DefaultSchema: "public"})

	assert.Equal(t, []string{"public.t", "sch.u"}, l.InputNames())
	assert.Equal(t, map[string][]string{
		"a": {"public.t.a"},
		"b": {"sch.u.b"},
	}, columnStrings(l))
}

func TestExtractDefaultSchemaSnowflake(t *testing.T) {
	l := extract(t, "INSERT INTO out SELECT id FROM src", Options{
		Dialect:       snowflake.Snowflake,
		DefaultSchema: "public",
	})

	assert.Equal(t, []string{"PUBLIC.SRC"}, l.InputNames())
	assert.Equal(t, []string{"PUBLIC.OUT"}, l.OutputNames())
	assert.Equal(t, map[string][]string{"PUBLIC.OUT.ID": {"PUBLIC.SRC.ID"}}, columnStrings(l))
}

// =============================================================================
// External resources
// =============================================================================

func TestExtractExternals(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		dialect  *dialect.Dialect
		prefixes []string
		inputs   []string
		outputs  []string
		extIn    []ExternalMeta
		extOut   []ExternalMeta
	}{
		{
			name:    "copy from storage",
			sql:     "COPY INTO t FROM 's3://bucket/path' FILE_FORMAT = (TYPE = CSV)",
			dialect: snowflake.Snowflake,
			outputs: []string{"T"},
			extIn:   []ExternalMeta{{Name: "s3://bucket/path", Scheme: "s3", TableLike: true, Quoted: true}},
		},
		{
			name:    "copy from stage",
			sql:     "COPY INTO t FROM @my_stage/data/ FILE_FORMAT = (TYPE = CSV)",
			dialect: snowflake.Snowflake,
			outputs: []string{"T"},
			extIn:   []ExternalMeta{{Name: "@my_stage/data/", TableLike: true, Quoted: true}},
		},
		{
			name:    "copy from unrecognized location keeps quotes",
			sql:     "COPY INTO t FROM 'https://example.com/data.csv'",
			dialect: snowflake.Snowflake,
			outputs: []string{"T"},
			extIn:   []ExternalMeta{{Name: "'https://example.com/data.csv'", TableLike: true, Quoted: true}},
		},
		{
			name:    "unload query to stage",
			sql:     "COPY INTO @out/ FROM (SELECT a FROM t) HEADER = TRUE",
			dialect: snowflake.Snowflake,
			inputs:  []string{"T"},
			extOut:  []ExternalMeta{{Name: "@out/", TableLike: true, Quoted: true}},
		},
		{
			name:    "custom storage prefix",
			sql:     "COPY INTO t FROM 'r2://bucket/key'",
			dialect: snowflake.Snowflake,
			prefixes: []string{
				"r2://",
			},
			outputs: []string{"T"},
			extIn:   []ExternalMeta{{Name: "r2://bucket/key", Scheme: "r2", TableLike: true, Quoted: true}},
		},
		{
			name:    "postgres copy from file",
			sql:     "COPY t (a, b) FROM '/tmp/data.csv' WITH (FORMAT csv)",
			dialect: postgres.Postgres,
			outputs: []string{"t"},
			extIn:   []ExternalMeta{{Name: "'/tmp/data.csv'", TableLike: true, Quoted: true}},
		},
		{
			name:    "postgres copy to file",
			sql:     "COPY t TO '/tmp/out.csv'",
			dialect: postgres.Postgres,
			inputs:  []string{"t"},
			extOut:  []ExternalMeta{{Name: "'/tmp/out.csv'", TableLike: true, Quoted: true}},
		},
		{
			name:    "postgres copy from stdin",
			sql:     "COPY t FROM STDIN",
			dialect: postgres.Postgres,
			outputs: []string{"t"},
		},
		{
			name:    "create stage",
			sql:     "CREATE OR REPLACE STAGE my_stage URL = 's3://bucket/path/'",
			dialect: snowflake.Snowflake,
			extIn:  []ExternalMeta{{Name: "s3://bucket/path/", Scheme: "s3", TableLike: true, Quoted: true}},
			extOut: []ExternalMeta{{Name: "my_stage", Quoted: true}},
		},
		{
			name:   "drop stage",
			sql:    "DROP STAGE s",
			extOut: []ExternalMeta{{Name: "s"}},
		},
		{
			name:  "select from stage",
			sql:   "SELECT $1 FROM @my_stage/data",
			extIn: []ExternalMeta{{Name: "@my_stage/data", TableLike: true, Quoted: true}},
		},
		{
			name:  "select from file path",
			sql:   "SELECT * FROM 's3://bucket/x.parquet'",
			extIn: []ExternalMeta{{Name: "s3://bucket/x.parquet", Scheme: "s3", TableLike: true, Quoted: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := extract(t, tt.sql, Options{Dialect: tt.dialect, StoragePrefixes: tt.prefixes})

			if tt.inputs == nil {
				tt.inputs = []string{}
			}
			if tt.outputs == nil {
				tt.outputs = []string{}
			}
			if tt.extIn == nil {
				tt.extIn = []ExternalMeta{}
			}
			if tt.extOut == nil {
				tt.extOut = []ExternalMeta{}
			}
			assert.Equal(t, tt.inputs, l.InputNames(), "inputs")
			assert.Equal(t, tt.outputs, l.OutputNames(), "outputs")
			assert.Equal(t, tt.extIn, l.ExternalInputs, "external inputs")
			assert.Equal(t, tt.extOut, l.ExternalOutputs, "external outputs")
			assert.Empty(t, l.Columns)
		})
	}
}

func TestExtractExternalIdentity(t *testing.T) {
	tests := []struct {
		name   string
		copied string
		read   string
	}{
		{
			name:   "storage location",
			copied: "COPY INTO t FROM 's3://bucket/path'",
			read:   "SELECT * FROM 's3://bucket/path'",
		},
		{
			name:   "stage",
			copied: "COPY INTO t FROM @s",
			read:   "SELECT * FROM @s",
		},
		{
			name:   "unload target read back",
			copied: "COPY INTO @s FROM t",
			read:   "SELECT * FROM @s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Dialect: snowflake.Snowflake}
			copied := extract(t, tt.copied, opts)
			read := extract(t, tt.read, opts)

			copiedExt := append(copied.ExternalInputs, copied.ExternalOutputs...)
			require.Len(t, copiedExt, 1)
			require.Len(t, read.ExternalInputs, 1)
			assert.Equal(t, read.ExternalInputs[0], copiedExt[0])
		})
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestExtractUnsupported(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "unnest",
			sql:  "SELECT * FROM UNNEST(arr) WITH ORDINALITY AS u",
			want: "TableFactor other than table or subquery not implemented: UNNEST(arr) WITH ORDINALITY AS u",
		},
		{
			name: "nested join",
			sql:  "SELECT * FROM (a JOIN b ON a.id = b.id)",
			want: "TableFactor other than table or subquery not implemented: (a JOIN b ON a.id = b.id)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractSQL(tt.sql, Options{})
			require.Error(t, err)

			var unsupported *UnsupportedError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestExtractNotSimpleTable(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		got  string
	}{
		{
			name: "merge into subquery",
			sql: `MERGE INTO (SELECT * FROM t) x USING s ON x.id = s.id
				WHEN MATCHED THEN DELETE`,
			got: "SELECT * FROM t",
		},
		{
			name: "update of subquery",
			sql:  "UPDATE (SELECT * FROM t) s SET a = 1",
			got:  "SELECT * FROM t",
		},
		{
			name: "pivot over subquery",
			sql:  "SELECT * FROM (SELECT * FROM sales) PIVOT (SUM(amount) FOR quarter IN ('Q1')) AS p",
			got:  "SELECT * FROM sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractSQL(tt.sql, Options{})
			require.ErrorIs(t, err, ErrNotSimpleTable)
			assert.True(t, strings.HasPrefix(err.Error(), "Name can be got only from simple table, got "), err.Error())
			assert.Contains(t, err.Error(), tt.got)
		})
	}

	t.Run("update of derived table", func(t *testing.T) {
		stmt := &core.UpdateStmt{
			Table: &core.DerivedTable{
				Select: &core.SelectStmt{Body: &core.SelectCore{}},
				Alias:  core.NewIdent("x"),
			},
		}
		_, err := Extract(stmt, Options{})
		require.ErrorIs(t, err, ErrNotSimpleTable)
		assert.Contains(t, err.Error(), ", got ")
	})
}

func TestExtractParseError(t *testing.T) {
	_, err := ExtractSQL("SELECT (a FROM t", Options{})
	require.Error(t, err)
}

// =============================================================================
// Result shape
// =============================================================================

func TestExtractIsDeterministic(t *testing.T) {
	sql := `WITH c AS (SELECT id, v FROM src)
		INSERT INTO out (k, val)
		SELECT c.id, d.w FROM c JOIN dim d ON c.id = d.id`

	first := extract(t, sql, Options{})
	second := extract(t, sql, Options{})
	assert.Equal(t, first, second)

	assert.Equal(t, []string{"dim", "src"}, first.InputNames())
	assert.Equal(t, map[string][]string{
		"out.k":   {"src.id"},
		"out.val": {"dim.w"},
	}, columnStrings(first))
}

func TestLineageColumn(t *testing.T) {
	l := extract(t, "SELECT a AS x FROM t", Options{})

	col, ok := l.Column("x")
	require.True(t, ok)
	require.Len(t, col.Ancestors, 1)
	assert.Equal(t, "a", col.Ancestors[0].Name)
	require.NotNil(t, col.Ancestors[0].Table)
	assert.Equal(t, []string{"t"}, col.Ancestors[0].Table.Parts())

	_, ok = l.Column("missing")
	assert.False(t, ok)
	assert.False(t, l.IsEmpty())
}
