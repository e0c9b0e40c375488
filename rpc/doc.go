// Package rpc serves a branch tree over JSON-RPC 2.0.
//
// Branches are addressed by name within the tree of the served root.
// Methods:
//
//	branch.create   {branch, name}               fork name from branch
//	branch.save     {branch}                     save branch into its parent
//	branch.modified {branch}                     ids of modified beans
//	branch.export   {branch}                     json patches of modified beans
//	bean.list       {branch}                     ids of Created beans
//	bean.create     {branch, bean}
//	bean.delete     {branch, bean}
//	bean.get        {branch, bean}               fields, or null
//	bean.state      {branch, bean}               UNDEFINED, CREATED or DELETED
//	bean.patch      {branch, bean, patch}        apply a JSON merge patch
//	field.set       {branch, bean, field, value} previous value
//	field.get       {branch, bean, field}
//	query.select    {branch, expr}               ids of matching beans
//
// Store errors are reported with the Code* error codes.
package rpc
