package parser

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Data modification parsing: INSERT, UPDATE, DELETE, MERGE.
//
// Grammar:
//
//	insert        → INSERT [OR (REPLACE|IGNORE)] [OVERWRITE] [INTO] [TABLE] name [[AS] alias]
//	                ["(" ident_list ")"] [BY (NAME|POSITION)]
//	                (query | DEFAULT VALUES) [on_conflict] [RETURNING select_list]
//	update        → UPDATE table_ref (join)* SET assignment ("," assignment)*
//	                [FROM from_clause] [WHERE expr] [RETURNING select_list]
//	delete        → DELETE [name ("," name)*] FROM from_clause [USING from_clause]
//	                [WHERE expr] [RETURNING select_list]
//	merge         → MERGE [INTO] table_ref USING table_ref ON expr (merge_clause)+
//	merge_clause  → WHEN [NOT] MATCHED [BY (SOURCE|TARGET)] [AND expr] THEN merge_action
//	merge_action  → UPDATE SET (assignment_list | "*") | DELETE | DO NOTHING
//	              | INSERT ["(" ident_list ")"] (VALUES "(" expr_list ")" | "*" | ROW)
//	assignment    → name "=" expr | "(" ident_list ")" "=" expr

// parseInsert parses an INSERT statement.
func (p *Parser) parseInsert(start token.Position, with *core.WithClause) *core.InsertStmt {
	p.expect(token.INSERT)
	stmt := &core.InsertStmt{With: with}

	if p.match(token.OR) {
		if !p.matchWord("REPLACE") {
			p.expectWord("IGNORE")
		}
	}
	stmt.Overwrite = p.matchWord("OVERWRITE")
	p.match(token.INTO)
	p.match(token.TABLE)

	stmt.Table = p.parseObjectName()
	if p.match(token.AS) {
		stmt.Alias = p.parseIdent()
	} else if p.canImplicitAlias() && !p.checkWord("DEFAULT") {
		stmt.Alias = p.parseIdent()
	}

	// Column list, unless the parenthesis opens the source query
	if p.check(token.LPAREN) && !isQueryStart(p.peek) && p.peek.Type != token.LPAREN {
		stmt.Columns = p.parseIdentList()
	}
	if p.check(token.BY) && (isWord(p.peek, "NAME") || isWord(p.peek, "POSITION")) {
		p.nextToken()
		p.nextToken()
	}

	if p.checkWord("DEFAULT") && p.checkPeek(token.VALUES) {
		p.nextToken()
		p.nextToken()
		stmt.DefaultValues = true
	} else {
		stmt.Source = p.parseQuery()
	}

	// ON CONFLICT ... / ON DUPLICATE KEY UPDATE ...
	if p.check(token.ON) && (isWord(p.peek, "CONFLICT") || isWord(p.peek, "DUPLICATE")) {
		for !p.atStatementEnd() && !p.checkWord("RETURNING") {
			if p.check(token.LPAREN) {
				p.skipParens()
				continue
			}
			p.nextToken()
		}
	}

	stmt.Returning = p.parseReturning()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseUpdate parses an UPDATE statement.
func (p *Parser) parseUpdate(start token.Position, with *core.WithClause) *core.UpdateStmt {
	p.expect(token.UPDATE)
	stmt := &core.UpdateStmt{With: with}

	stmt.Table = p.parseTableRef()
	for {
		join := p.parseJoin()
		if join == nil {
			break
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	p.expect(token.SET)
	stmt.Assignments = p.parseAssignments()

	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}

	stmt.Returning = p.parseReturning()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseAssignments parses a SET list.
func (p *Parser) parseAssignments() []core.Assignment {
	var assignments []core.Assignment
	for {
		if p.check(token.LPAREN) {
			// (a, b) = (SELECT x, y ...)
			cols := p.parseIdentList()
			p.expect(token.EQ)
			value := p.parseExpression()
			for _, c := range cols {
				assignments = append(assignments, core.Assignment{Column: core.ObjectName{c}, Value: value})
			}
		} else {
			col := p.parseObjectName()
			p.expect(token.EQ)
			assignments = append(assignments, core.Assignment{Column: col, Value: p.parseExpression()})
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	return assignments
}

// parseDelete parses a DELETE statement.
func (p *Parser) parseDelete(start token.Position, with *core.WithClause) *core.DeleteStmt {
	p.expect(token.DELETE)
	stmt := &core.DeleteStmt{With: with}

	// Multi-table form: DELETE t1, t2 FROM ...
	if !p.check(token.FROM) {
		for {
			name := p.parseObjectName()
			if p.check(token.DOT) && p.checkPeek(token.STAR) {
				p.nextToken()
				p.nextToken()
			}
			stmt.Tables = append(stmt.Tables, name)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	// Some dialects allow DELETE t WHERE ... without FROM
	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	if p.match(token.USING) {
		stmt.Using = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}

	stmt.Returning = p.parseReturning()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseMerge parses a MERGE statement.
func (p *Parser) parseMerge(start token.Position, with *core.WithClause) *core.MergeStmt {
	p.expect(token.MERGE)
	p.match(token.INTO)
	stmt := &core.MergeStmt{With: with}

	stmt.Target = p.parseTableRef()
	p.expect(token.USING)
	stmt.Source = p.parseTableRef()
	p.expect(token.ON)
	stmt.On = p.parseExpression()

	for p.check(token.WHEN) {
		stmt.Clauses = append(stmt.Clauses, p.parseMergeClause())
	}
	if len(stmt.Clauses) == 0 {
		p.expect(token.WHEN)
	}

	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseMergeClause parses one WHEN branch of MERGE.
func (p *Parser) parseMergeClause() *core.MergeClause {
	p.expect(token.WHEN)
	clause := &core.MergeClause{Matched: true}

	if p.match(token.NOT) {
		clause.Matched = false
	}
	p.expectWord("MATCHED")
	if p.match(token.BY) {
		if p.matchWord("SOURCE") {
			clause.BySource = true
		} else {
			p.expectWord("TARGET")
		}
	}
	if p.match(token.AND) {
		clause.Condition = p.parseExpression()
	}
	p.expect(token.THEN)

	switch {
	case p.match(token.UPDATE):
		clause.Action = core.MergeUpdate
		p.expect(token.SET)
		if !p.match(token.STAR) {
			clause.Assignments = p.parseAssignments()
		}
	case p.match(token.DELETE):
		clause.Action = core.MergeDelete
	case p.matchWord("DO"):
		p.expectWord("NOTHING")
		clause.Action = core.MergeDoNothing
	case p.match(token.INSERT):
		clause.Action = core.MergeInsert
		if p.check(token.LPAREN) {
			clause.Columns = p.parseIdentList()
		}
		switch {
		case p.match(token.STAR), p.match(token.ROW):
		case p.checkWord("DEFAULT"):
			p.nextToken()
			p.expect(token.VALUES)
		default:
			p.expect(token.VALUES)
			p.expect(token.LPAREN)
			clause.Values = p.parseExpressionList()
			p.expect(token.RPAREN)
		}
	default:
		p.expect(token.UPDATE)
	}

	return clause
}

// parseReturning parses an optional RETURNING list.
func (p *Parser) parseReturning() []core.SelectItem {
	if !p.matchWord("RETURNING") {
		return nil
	}
	return p.parseSelectList()
}
