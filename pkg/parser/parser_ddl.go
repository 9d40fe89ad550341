package parser

import (
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Definition and bulk statements: CREATE TABLE/VIEW/STAGE, ALTER TABLE,
// DROP, TRUNCATE and COPY.
//
// Grammar:
//
//	create        → CREATE [OR REPLACE] modifier* (create_table | create_view | create_stage | raw)
//	create_table  → TABLE [IF NOT EXISTS] name ["(" table_element ("," table_element)* ")"]
//	                option* [AS query | LIKE name | CLONE name [time_travel]]
//	create_view   → [MATERIALIZED] VIEW [IF NOT EXISTS] name ["(" ident_list ")"] option* AS query
//	create_stage  → STAGE [IF NOT EXISTS] name (key ["="] value)*
//	alter         → ALTER TABLE [IF EXISTS] name alter_op ("," alter_op)*
//	alter_op      → SWAP WITH name | RENAME TO name | token*
//	drop          → DROP object_type [IF EXISTS] name ("," name)* [CASCADE|RESTRICT|PURGE]
//	truncate      → TRUNCATE [TABLE] [IF EXISTS] name ("," name)*
//	copy          → COPY INTO location ["(" ident_list ")"] FROM (location | "(" query ")") (key ["="] value)*
//	              | COPY (name ["(" ident_list ")"] | "(" query ")") (FROM | TO) location option*
//	location      → name | @stage[/path] | STRING

// createModifiers may appear between CREATE [OR REPLACE] and the object kind.
var createModifiers = map[string]bool{
	"TEMPORARY": true, "TEMP": true, "TRANSIENT": true, "VOLATILE": true,
	"LOCAL": true, "GLOBAL": true, "EXTERNAL": true, "SECURE": true,
	"UNLOGGED": true, "DYNAMIC": true, "ICEBERG": true, "HYBRID": true,
	"EVENT": true,
}

// columnConstraintWords end the type of a column definition.
var columnConstraintWords = map[string]bool{
	"NOT": true, "NULL": true, "DEFAULT": true, "PRIMARY": true, "REFERENCES": true,
	"UNIQUE": true, "CHECK": true, "CONSTRAINT": true, "COLLATE": true,
	"COMMENT": true, "AUTOINCREMENT": true, "IDENTITY": true, "GENERATED": true,
	"MASKING": true, "TAG": true,
}

// tableConstraintWords start a table-level constraint in a column list.
var tableConstraintWords = map[string]bool{
	"CONSTRAINT": true, "PRIMARY": true, "UNIQUE": true, "FOREIGN": true,
	"CHECK": true, "INDEX": true, "KEY": true, "EXCLUDE": true,
}

// parseCreate parses the CREATE family.
func (p *Parser) parseCreate() core.Stmt {
	start := p.token.Pos
	p.expect(token.CREATE)

	orReplace := false
	if p.match(token.OR) {
		p.expectWord("REPLACE")
		orReplace = true
	}

	var kind []string
	materialized := false
	for {
		switch {
		case p.checkWord("MATERIALIZED"):
			materialized = true
			p.nextToken()
			continue
		case p.check(token.RECURSIVE):
			p.nextToken()
			continue
		case !p.token.IsQuoted() && createModifiers[strings.ToUpper(p.token.Literal)]:
			kind = append(kind, strings.ToUpper(p.token.Literal))
			p.nextToken()
			continue
		}
		break
	}

	switch {
	case p.match(token.TABLE):
		return p.parseCreateTable(start, orReplace, strings.Join(kind, " "))
	case p.match(token.VIEW):
		return p.parseCreateView(start, orReplace, materialized)
	case p.matchWord("STAGE"):
		return p.parseCreateStage(start, orReplace, len(kind) > 0)
	}

	p.skipToStatementEnd()
	return &core.RawStmt{NodeInfo: p.info(start), Keyword: "CREATE", Text: p.textFrom(start)}
}

// parseIfNotExists consumes IF NOT EXISTS.
func (p *Parser) parseIfNotExists() bool {
	if p.checkWord("IF") && p.checkPeek(token.NOT) {
		p.nextToken()
		p.nextToken()
		p.expect(token.EXISTS)
		return true
	}
	return false
}

// parseIfExists consumes IF EXISTS.
func (p *Parser) parseIfExists() bool {
	if p.checkWord("IF") && p.checkPeek(token.EXISTS) {
		p.nextToken()
		p.nextToken()
		return true
	}
	return false
}

// parseCreateTable parses CREATE TABLE after the TABLE keyword.
func (p *Parser) parseCreateTable(start token.Position, orReplace bool, kind string) *core.CreateTableStmt {
	stmt := &core.CreateTableStmt{OrReplace: orReplace, Kind: kind}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseObjectName()

	if p.check(token.LPAREN) && !isQueryStart(p.peek) {
		p.parseTableElements(stmt)
	}

	// Table options: CLUSTER BY (...), COMMENT = '...', WITH (...), PARTITION BY ...
	for !p.atStatementEnd() {
		switch {
		case p.match(token.AS):
			stmt.Query = p.parseQuery()
		case p.match(token.LIKE):
			stmt.Like = p.parseObjectName()
		case p.matchWord("CLONE"):
			stmt.Clone = p.parseObjectName()
			p.skipTimeTravel()
		case p.check(token.LPAREN):
			p.skipParens()
		default:
			p.nextToken()
		}
	}

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseTableElements parses the parenthesized column and constraint list.
func (p *Parser) parseTableElements(stmt *core.CreateTableStmt) {
	p.expect(token.LPAREN)
	for !p.check(token.RPAREN) {
		switch {
		case p.match(token.LIKE):
			// CREATE TABLE t (LIKE s)
			stmt.Like = p.parseObjectName()
			p.skipElement()
		case !p.token.IsQuoted() && tableConstraintWords[strings.ToUpper(p.token.Literal)]:
			p.skipElement()
		default:
			col := core.ColumnDef{Name: p.parseIdent()}
			if !p.check(token.COMMA) && !p.check(token.RPAREN) && !p.isConstraintWord() {
				col.Type = p.parseTypeName()
			}
			p.skipElement()
			stmt.Columns = append(stmt.Columns, col)
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
}

// isConstraintWord reports whether the current token starts a column constraint.
func (p *Parser) isConstraintWord() bool {
	return !p.token.IsQuoted() && columnConstraintWords[strings.ToUpper(p.token.Literal)]
}

// skipElement skips the rest of a list element up to "," or ")".
func (p *Parser) skipElement() {
	for !p.check(token.COMMA) && !p.check(token.RPAREN) && !p.atStatementEnd() {
		if p.check(token.LPAREN) {
			p.skipParens()
			continue
		}
		p.nextToken()
	}
}

// parseCreateView parses CREATE VIEW after the VIEW keyword.
func (p *Parser) parseCreateView(start token.Position, orReplace, materialized bool) *core.CreateViewStmt {
	stmt := &core.CreateViewStmt{OrReplace: orReplace, Materialized: materialized}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseObjectName()

	if p.match(token.LPAREN) {
		for {
			stmt.Columns = append(stmt.Columns, p.parseIdent())
			p.skipElement()
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	// View options up to AS: COMMENT = '...', WITH (...), COPY GRANTS
	for !p.check(token.AS) {
		if p.atStatementEnd() {
			p.expect(token.AS)
		}
		if p.check(token.LPAREN) {
			p.skipParens()
			continue
		}
		p.nextToken()
	}
	p.expect(token.AS)
	stmt.Query = p.parseQuery()

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseCreateStage parses CREATE STAGE after the STAGE keyword.
func (p *Parser) parseCreateStage(start token.Position, orReplace, temporary bool) *core.CreateStageStmt {
	stmt := &core.CreateStageStmt{OrReplace: orReplace, Temporary: temporary}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseObjectName()

	for _, opt := range p.parseOptions() {
		if strings.EqualFold(opt.Key, "URL") {
			stmt.URL = opt.Value
			continue
		}
		stmt.Options = append(stmt.Options, opt)
	}

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseOptions parses KEY [=] value options up to the end of the statement.
// String values are unquoted; parenthesized values keep their source text.
func (p *Parser) parseOptions() []core.Option {
	var opts []core.Option
	for !p.atStatementEnd() {
		if p.check(token.LPAREN) {
			// anonymous group such as WITH (FORMAT csv) after a key-less WITH
			vstart := p.token.Pos
			p.skipParens()
			opts = append(opts, core.Option{Value: p.textFrom(vstart)})
			continue
		}

		opt := core.Option{Key: strings.ToUpper(p.token.Literal)}
		p.nextToken()
		if !p.match(token.EQ) && !p.check(token.LPAREN) && !p.check(token.STRING) {
			opts = append(opts, opt)
			continue
		}

		switch {
		case p.check(token.STRING):
			opt.Value = p.token.Literal
			p.nextToken()
		case p.check(token.LPAREN):
			vstart := p.token.Pos
			p.skipParens()
			opt.Value = p.textFrom(vstart)
		case !p.atStatementEnd():
			opt.Value = p.token.Literal
			p.nextToken()
		}
		opts = append(opts, opt)
	}
	return opts
}

// parseAlter parses ALTER TABLE; other ALTER statements are kept raw.
func (p *Parser) parseAlter() core.Stmt {
	start := p.token.Pos
	p.expect(token.ALTER)

	if !p.match(token.TABLE) {
		p.skipToStatementEnd()
		return &core.RawStmt{NodeInfo: p.info(start), Keyword: "ALTER", Text: p.textFrom(start)}
	}

	stmt := &core.AlterTableStmt{}
	stmt.IfExists = p.parseIfExists()
	p.matchWord("ONLY")
	stmt.Name = p.parseObjectName()

	for !p.atStatementEnd() {
		stmt.Operations = append(stmt.Operations, p.parseAlterOp())
		if !p.match(token.COMMA) {
			break
		}
	}

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseAlterOp parses one ALTER TABLE operation.
func (p *Parser) parseAlterOp() core.AlterOp {
	start := p.token.Pos

	switch {
	case p.checkWord("SWAP") && p.checkPeek(token.WITH):
		p.nextToken()
		p.nextToken()
		return core.AlterOp{Kind: core.AlterSwapWith, Target: p.parseObjectName()}
	case p.checkWord("RENAME") && isWord(p.peek, "TO"):
		p.nextToken()
		p.nextToken()
		return core.AlterOp{Kind: core.AlterRenameTable, Target: p.parseObjectName()}
	case p.checkWord("RENAME") && p.checkPeek(token.AS):
		p.nextToken()
		p.nextToken()
		return core.AlterOp{Kind: core.AlterRenameTable, Target: p.parseObjectName()}
	}

	for !p.check(token.COMMA) && !p.atStatementEnd() {
		if p.check(token.LPAREN) {
			p.skipParens()
			continue
		}
		p.nextToken()
	}
	return core.AlterOp{Kind: core.AlterOther, Text: p.textFrom(start)}
}

// dropObjectWords make up the object type of DROP.
var dropObjectWords = map[string]bool{
	"MATERIALIZED": true, "EXTERNAL": true, "TEMPORARY": true, "TRANSIENT": true,
	"DYNAMIC": true, "ICEBERG": true, "STAGE": true, "SCHEMA": true,
	"DATABASE": true, "SEQUENCE": true, "INDEX": true, "FUNCTION": true,
	"PROCEDURE": true, "STREAM": true, "TASK": true, "PIPE": true,
	"FILE": true, "FORMAT": true, "MACRO": true, "TYPE": true,
}

// parseDrop parses DROP <object type> [IF EXISTS] name, ...
func (p *Parser) parseDrop() *core.DropStmt {
	start := p.token.Pos
	p.expect(token.DROP)
	stmt := &core.DropStmt{}

	var words []string
	for {
		if p.check(token.TABLE) || p.check(token.VIEW) ||
			(!p.token.IsQuoted() && dropObjectWords[strings.ToUpper(p.token.Literal)]) {
			words = append(words, strings.ToUpper(p.token.Literal))
			p.nextToken()
			continue
		}
		break
	}
	if len(words) == 0 {
		p.expect(token.TABLE)
	}
	stmt.ObjectType = strings.Join(words, " ")

	stmt.IfExists = p.parseIfExists()
	for {
		stmt.Names = append(stmt.Names, p.parseObjectName())
		if p.check(token.LPAREN) {
			// DROP FUNCTION f(INT)
			p.skipParens()
		}
		if !p.match(token.COMMA) {
			break
		}
	}

	switch {
	case p.matchWord("CASCADE"):
		stmt.Cascade = true
	case p.matchWord("RESTRICT"), p.matchWord("PURGE"):
	}

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseTruncate parses TRUNCATE [TABLE] [IF EXISTS] name, ...
func (p *Parser) parseTruncate() *core.TruncateStmt {
	start := p.token.Pos
	p.nextToken() // TRUNCATE
	p.match(token.TABLE)
	stmt := &core.TruncateStmt{}
	stmt.IfExists = p.parseIfExists()
	p.matchWord("ONLY")

	for {
		stmt.Tables = append(stmt.Tables, p.parseObjectName())
		if !p.match(token.COMMA) {
			break
		}
	}
	// RESTART IDENTITY, CASCADE, ...
	p.skipToStatementEnd()

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseCopy parses COPY INTO and the Postgres COPY ... FROM|TO forms.
func (p *Parser) parseCopy() *core.CopyIntoStmt {
	start := p.token.Pos
	p.nextToken() // COPY
	stmt := &core.CopyIntoStmt{}

	if p.match(token.INTO) {
		stmt.Into = p.parseCopyLocation()
		if p.check(token.LPAREN) {
			stmt.Columns = p.parseIdentList()
		}
		p.expect(token.FROM)
		if p.check(token.LPAREN) {
			p.nextToken()
			stmt.Query = p.parseQuery()
			p.expect(token.RPAREN)
		} else {
			stmt.From = p.parseCopyLocation()
		}
		stmt.Options = p.parseOptions()
		stmt.NodeInfo = p.info(start)
		return stmt
	}

	// COPY t [(cols)] FROM 'file' | COPY t TO 'file' | COPY (query) TO 'file'
	var table core.CopyLocation
	if p.match(token.LPAREN) {
		stmt.Query = p.parseQuery()
		p.expect(token.RPAREN)
	} else {
		table = core.CopyLocation{Name: p.parseObjectName()}
		if p.check(token.LPAREN) {
			stmt.Columns = p.parseIdentList()
		}
	}

	switch {
	case p.match(token.FROM):
		stmt.Into = table
		stmt.From = p.parseCopyEndpoint()
	case p.matchWord("TO"):
		stmt.From = table
		stmt.Into = p.parseCopyEndpoint()
	default:
		p.expect(token.FROM)
	}

	stmt.Options = p.parseOptions()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseCopyLocation parses a table name, a stage reference or a quoted location.
func (p *Parser) parseCopyLocation() core.CopyLocation {
	if p.check(token.STRING) {
		loc := core.CopyLocation{Location: p.token.Literal}
		p.nextToken()
		return loc
	}
	return core.CopyLocation{Name: p.parseObjectName()}
}

// parseCopyEndpoint parses the file side of a Postgres COPY. STDIN,
// STDOUT and PROGRAM leave the location empty.
func (p *Parser) parseCopyEndpoint() core.CopyLocation {
	switch {
	case p.matchWord("STDIN"), p.matchWord("STDOUT"):
		return core.CopyLocation{}
	case p.matchWord("PROGRAM"):
		p.expect(token.STRING)
		return core.CopyLocation{}
	}
	return p.parseCopyLocation()
}
