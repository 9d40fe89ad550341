package parser_test

import (
	"testing"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialects/postgres"
	"github.com/leapstack-labs/leaplineage/pkg/dialects/snowflake"
	"github.com/leapstack-labs/leaplineage/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, sql string) core.Stmt {
	t.Helper()
	stmt, err := parser.Parse(sql, nil)
	require.NoError(t, err)
	return stmt
}

// ---------- DML ----------

func TestParseInsert(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		table     string
		columns   int
		overwrite bool
		defaults  bool
	}{
		{"insert select", "INSERT INTO t SELECT a FROM s", "t", 0, false, false},
		{"insert columns", "INSERT INTO sch.t (a, b) SELECT x, y FROM s", "sch.t", 2, false, false},
		{"insert values", "INSERT INTO t (a) VALUES (1), (2)", "t", 1, false, false},
		{"insert parenthesized query", "INSERT INTO t (SELECT a FROM s)", "t", 0, false, false},
		{"insert overwrite", "INSERT OVERWRITE TABLE t SELECT a FROM s", "t", 0, true, false},
		{"insert default values", "INSERT INTO t DEFAULT VALUES", "t", 0, false, true},
		{"insert on conflict", "INSERT INTO t (a) VALUES (1) ON CONFLICT (a) DO NOTHING", "t", 1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, ok := mustParse(t, tt.sql).(*core.InsertStmt)
			require.True(t, ok)
			assert.Equal(t, tt.table, ins.Table.String())
			assert.Len(t, ins.Columns, tt.columns)
			assert.Equal(t, tt.overwrite, ins.Overwrite)
			assert.Equal(t, tt.defaults, ins.DefaultValues)
			if !tt.defaults {
				assert.NotNil(t, ins.Source)
			}
		})
	}
}

func TestParseInsertWithCTE(t *testing.T) {
	ins, ok := mustParse(t, "WITH c AS (SELECT 1 AS a) INSERT INTO t SELECT a FROM c").(*core.InsertStmt)
	require.True(t, ok)
	require.NotNil(t, ins.With)
	assert.Len(t, ins.With.CTEs, 1)
}

func TestParseInsertReturning(t *testing.T) {
	ins := mustParse(t, "INSERT INTO t (a) VALUES (1) RETURNING a, b").(*core.InsertStmt)
	assert.Len(t, ins.Returning, 2)
}

func TestParseUpdate(t *testing.T) {
	upd, ok := mustParse(t, "UPDATE t AS x SET a = s.a, b = 1 FROM s WHERE x.id = s.id").(*core.UpdateStmt)
	require.True(t, ok)

	tn := upd.Table.(*core.TableName)
	assert.Equal(t, "t", tn.Name.String())
	assert.Equal(t, "x", tn.Alias.Value)
	require.Len(t, upd.Assignments, 2)
	assert.Equal(t, "a", upd.Assignments[0].Column.String())
	require.NotNil(t, upd.From)
	assert.NotNil(t, upd.Where)
}

func TestParseUpdateTupleAssignment(t *testing.T) {
	upd := mustParse(t, "UPDATE t SET (a, b) = (SELECT x, y FROM s)").(*core.UpdateStmt)
	require.Len(t, upd.Assignments, 2)
	assert.Equal(t, "b", upd.Assignments[1].Column.String())
	assert.Same(t, upd.Assignments[0].Value, upd.Assignments[1].Value)
}

func TestParseUpdateWithJoin(t *testing.T) {
	upd := mustParse(t, "UPDATE t JOIN s ON t.id = s.id SET t.a = s.a").(*core.UpdateStmt)
	assert.Len(t, upd.Joins, 1)
	assert.Equal(t, "t.a", upd.Assignments[0].Column.String())
}

func TestParseDelete(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		tables int
		using  bool
	}{
		{"simple", "DELETE FROM t WHERE a = 1", 0, false},
		{"using", "DELETE FROM t USING s WHERE t.id = s.id", 0, true},
		{"multi table", "DELETE t1, t2 FROM t1 JOIN t2 ON t1.id = t2.id", 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			del, ok := mustParse(t, tt.sql).(*core.DeleteStmt)
			require.True(t, ok)
			assert.Len(t, del.Tables, tt.tables)
			assert.NotNil(t, del.From)
			assert.Equal(t, tt.using, del.Using != nil)
		})
	}
}

func TestParseMerge(t *testing.T) {
	sql := `MERGE INTO target t USING source s ON t.id = s.id
		WHEN MATCHED AND s.deleted THEN DELETE
		WHEN MATCHED THEN UPDATE SET t.v = s.v
		WHEN NOT MATCHED BY SOURCE THEN DELETE
		WHEN NOT MATCHED THEN INSERT (id, v) VALUES (s.id, s.v)`

	m, ok := mustParse(t, sql).(*core.MergeStmt)
	require.True(t, ok)
	assert.Equal(t, "t", m.Target.(*core.TableName).Alias.Value)
	assert.Equal(t, "s", m.Source.(*core.TableName).Alias.Value)
	require.Len(t, m.Clauses, 4)

	assert.Equal(t, core.MergeDelete, m.Clauses[0].Action)
	assert.NotNil(t, m.Clauses[0].Condition)

	assert.Equal(t, core.MergeUpdate, m.Clauses[1].Action)
	assert.Len(t, m.Clauses[1].Assignments, 1)

	assert.False(t, m.Clauses[2].Matched)
	assert.True(t, m.Clauses[2].BySource)

	assert.Equal(t, core.MergeInsert, m.Clauses[3].Action)
	assert.Len(t, m.Clauses[3].Columns, 2)
	assert.Len(t, m.Clauses[3].Values, 2)
}

func TestParseMergeSubquerySource(t *testing.T) {
	sql := `MERGE INTO t USING (SELECT id, v FROM s) src ON t.id = src.id
		WHEN NOT MATCHED THEN INSERT VALUES (src.id, src.v)`

	m := mustParse(t, sql).(*core.MergeStmt)
	dt, ok := m.Source.(*core.DerivedTable)
	require.True(t, ok)
	assert.Equal(t, "src", dt.Alias.Value)
}

func TestParseMergeRequiresClause(t *testing.T) {
	_, err := parser.Parse("MERGE INTO t USING s ON t.id = s.id", nil)
	require.Error(t, err)
}

// ---------- DDL ----------

func TestParseCreateTable(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		kind    string
		columns []string
		query   bool
		like    string
		clone   string
	}{
		{
			name:    "column definitions",
			sql:     "CREATE TABLE t (id INT NOT NULL PRIMARY KEY, name VARCHAR(20) DEFAULT 'x', PRIMARY KEY (id))",
			columns: []string{"id", "name"},
		},
		{
			name:  "as select",
			sql:   "CREATE OR REPLACE TABLE t AS SELECT a FROM s",
			query: true,
		},
		{
			name:  "temporary as select",
			sql:   "CREATE TEMPORARY TABLE IF NOT EXISTS t AS SELECT a FROM s",
			kind:  "TEMPORARY",
			query: true,
		},
		{
			name:  "options before as",
			sql:   "CREATE TABLE t CLUSTER BY (a) COMMENT = 'c' AS SELECT a FROM s",
			query: true,
		},
		{
			name: "like",
			sql:  "CREATE TABLE t LIKE s",
			like: "s",
		},
		{
			name: "like inside parens",
			sql:  "CREATE TABLE t (LIKE s INCLUDING ALL)",
			like: "s",
		},
		{
			name:  "clone",
			sql:   "CREATE TRANSIENT TABLE t CLONE db.s",
			kind:  "TRANSIENT",
			clone: "db.s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, ok := mustParse(t, tt.sql).(*core.CreateTableStmt)
			require.True(t, ok)
			assert.Equal(t, "t", ct.Name.String())
			assert.Equal(t, tt.kind, ct.Kind)

			var cols []string
			for _, c := range ct.Columns {
				cols = append(cols, c.Name.Value)
			}
			assert.Equal(t, tt.columns, cols)
			assert.Equal(t, tt.query, ct.Query != nil)
			assert.Equal(t, tt.like, ct.Like.String())
			assert.Equal(t, tt.clone, ct.Clone.String())
		})
	}
}

func TestParseCreateTableColumnTypes(t *testing.T) {
	ct := mustParse(t, "CREATE TABLE t (a DOUBLE PRECISION NOT NULL, b VARCHAR(20), c INT)").(*core.CreateTableStmt)
	require.Len(t, ct.Columns, 3)
	assert.Equal(t, "DOUBLE PRECISION", ct.Columns[0].Type)
	assert.Equal(t, "VARCHAR(20)", ct.Columns[1].Type)
	assert.Equal(t, "INT", ct.Columns[2].Type)
}

func TestParseCreateView(t *testing.T) {
	cv, ok := mustParse(t, "CREATE OR REPLACE MATERIALIZED VIEW v (x, y) COMMENT = 'v' AS SELECT a, b FROM t").(*core.CreateViewStmt)
	require.True(t, ok)
	assert.True(t, cv.OrReplace)
	assert.True(t, cv.Materialized)
	assert.Equal(t, "v", cv.Name.String())
	assert.Len(t, cv.Columns, 2)
	require.NotNil(t, cv.Query)
}

func TestParseCreateViewRequiresQuery(t *testing.T) {
	_, err := parser.Parse("CREATE VIEW v", nil)
	require.Error(t, err)
}

func TestParseCreateStage(t *testing.T) {
	stmt, err := parser.Parse(
		"CREATE OR REPLACE STAGE my_stage URL = 's3://bucket/path/' FILE_FORMAT = (TYPE = CSV) STORAGE_INTEGRATION = s3_int",
		snowflake.Snowflake)
	require.NoError(t, err)

	cs, ok := stmt.(*core.CreateStageStmt)
	require.True(t, ok)
	assert.Equal(t, "my_stage", cs.Name.String())
	assert.Equal(t, "s3://bucket/path/", cs.URL)
	require.Len(t, cs.Options, 2)
	assert.Equal(t, "FILE_FORMAT", cs.Options[0].Key)
	assert.Equal(t, "(TYPE = CSV)", cs.Options[0].Value)
	assert.Equal(t, "s3_int", cs.Options[1].Value)
}

func TestParseCreateOther(t *testing.T) {
	raw, ok := mustParse(t, "CREATE SCHEMA IF NOT EXISTS analytics").(*core.RawStmt)
	require.True(t, ok)
	assert.Equal(t, "CREATE", raw.Keyword)
	assert.Equal(t, "CREATE SCHEMA IF NOT EXISTS analytics", raw.Text)
}

func TestParseAlterTable(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		kind   core.AlterOpKind
		target string
	}{
		{"swap", "ALTER TABLE a SWAP WITH b", core.AlterSwapWith, "b"},
		{"rename", "ALTER TABLE IF EXISTS a RENAME TO b", core.AlterRenameTable, "b"},
		{"add column", "ALTER TABLE a ADD COLUMN c INT", core.AlterOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, ok := mustParse(t, tt.sql).(*core.AlterTableStmt)
			require.True(t, ok)
			assert.Equal(t, "a", at.Name.String())
			require.Len(t, at.Operations, 1)
			assert.Equal(t, tt.kind, at.Operations[0].Kind)
			assert.Equal(t, tt.target, at.Operations[0].Target.String())
		})
	}
}

func TestParseAlterTableMultipleOps(t *testing.T) {
	at := mustParse(t, "ALTER TABLE a ADD COLUMN c INT, DROP COLUMN d").(*core.AlterTableStmt)
	require.Len(t, at.Operations, 2)
	assert.Equal(t, "ADD COLUMN c INT", at.Operations[0].Text)
	assert.Equal(t, "DROP COLUMN d", at.Operations[1].Text)
}

func TestParseAlterOtherIsRaw(t *testing.T) {
	raw, ok := mustParse(t, "ALTER WAREHOUSE wh SET WAREHOUSE_SIZE = 'LARGE'").(*core.RawStmt)
	require.True(t, ok)
	assert.Equal(t, "ALTER", raw.Keyword)
}

func TestParseDrop(t *testing.T) {
	tests := []struct {
		name       string
		sql        string
		objectType string
		names      []string
		ifExists   bool
		cascade    bool
	}{
		{"table", "DROP TABLE t", "TABLE", []string{"t"}, false, false},
		{"several tables", "DROP TABLE IF EXISTS a, b.c CASCADE", "TABLE", []string{"a", "b.c"}, true, true},
		{"view", "DROP MATERIALIZED VIEW v", "MATERIALIZED VIEW", []string{"v"}, false, false},
		{"stage", "DROP STAGE s", "STAGE", []string{"s"}, false, false},
		{"function", "DROP FUNCTION f(INT)", "FUNCTION", []string{"f"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drop, ok := mustParse(t, tt.sql).(*core.DropStmt)
			require.True(t, ok)
			assert.Equal(t, tt.objectType, drop.ObjectType)
			var names []string
			for _, n := range drop.Names {
				names = append(names, n.String())
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.ifExists, drop.IfExists)
			assert.Equal(t, tt.cascade, drop.Cascade)
		})
	}
}

func TestParseTruncate(t *testing.T) {
	tr, ok := mustParse(t, "TRUNCATE TABLE IF EXISTS a, b RESTART IDENTITY").(*core.TruncateStmt)
	require.True(t, ok)
	assert.True(t, tr.IfExists)
	require.Len(t, tr.Tables, 2)
	assert.Equal(t, "b", tr.Tables[1].String())
}

// ---------- COPY ----------

func TestParseCopyInto(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		into     string
		from     string
		external bool
		query    bool
	}{
		{
			name:     "load from stage",
			sql:      "COPY INTO t FROM @my_stage/data/ FILE_FORMAT = (TYPE = CSV)",
			into:     "t",
			from:     "@my_stage/data/",
			external: true,
		},
		{
			name:     "load from url",
			sql:      "COPY INTO db.t (a, b) FROM 's3://bucket/key' CREDENTIALS = (AWS_KEY_ID = 'x')",
			into:     "db.t",
			from:     "'s3://bucket/key'",
			external: true,
		},
		{
			name:  "unload query",
			sql:   "COPY INTO @out/ FROM (SELECT a FROM t) HEADER = TRUE",
			into:  "@out/",
			query: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql, snowflake.Snowflake)
			require.NoError(t, err)
			cp, ok := stmt.(*core.CopyIntoStmt)
			require.True(t, ok)
			assert.Equal(t, tt.into, cp.Into.String())
			assert.Equal(t, tt.query, cp.Query != nil)
			if !tt.query {
				assert.Equal(t, tt.from, cp.From.String())
				assert.Equal(t, tt.external, cp.From.IsExternal())
			}
		})
	}
}

func TestParseCopyOptions(t *testing.T) {
	stmt, err := parser.Parse("COPY INTO t FROM @s PATTERN = '.*[.]csv' ON_ERROR = CONTINUE PURGE", snowflake.Snowflake)
	require.NoError(t, err)
	cp := stmt.(*core.CopyIntoStmt)
	require.Len(t, cp.Options, 3)
	assert.Equal(t, core.Option{Key: "PATTERN", Value: ".*[.]csv"}, cp.Options[0])
	assert.Equal(t, core.Option{Key: "ON_ERROR", Value: "CONTINUE"}, cp.Options[1])
	assert.Equal(t, core.Option{Key: "PURGE"}, cp.Options[2])
}

func TestParsePostgresCopy(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		into  core.CopyLocation
		from  core.CopyLocation
		query bool
	}{
		{
			name: "copy from file",
			sql:  "COPY t (a, b) FROM '/tmp/data.csv' WITH (FORMAT csv)",
			into: core.CopyLocation{Name: core.NewObjectName("t")},
			from: core.CopyLocation{Location: "/tmp/data.csv"},
		},
		{
			name: "copy to file",
			sql:  "COPY t TO '/tmp/out.csv'",
			into: core.CopyLocation{Location: "/tmp/out.csv"},
			from: core.CopyLocation{Name: core.NewObjectName("t")},
		},
		{
			name: "copy from stdin",
			sql:  "COPY t FROM STDIN",
			into: core.CopyLocation{Name: core.NewObjectName("t")},
		},
		{
			name:  "copy query to file",
			sql:   "COPY (SELECT a FROM t) TO '/tmp/q.csv'",
			into:  core.CopyLocation{Location: "/tmp/q.csv"},
			query: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql, postgres.Postgres)
			require.NoError(t, err)
			cp := stmt.(*core.CopyIntoStmt)
			assert.Equal(t, tt.into.String(), cp.Into.String())
			assert.Equal(t, tt.from.String(), cp.From.String())
			assert.Equal(t, tt.query, cp.Query != nil)
		})
	}
}

func TestParseRawStatements(t *testing.T) {
	tests := []struct {
		sql     string
		keyword string
	}{
		{"GRANT SELECT ON t TO role_a", "GRANT"},
		{"USE WAREHOUSE wh", "USE"},
		{"SET x = 1", "SET"},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			raw, ok := mustParse(t, tt.sql).(*core.RawStmt)
			require.True(t, ok)
			assert.Equal(t, tt.keyword, raw.Keyword)
			assert.Equal(t, tt.sql, raw.Text)
		})
	}
}
