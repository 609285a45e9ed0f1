/*
Package dom provides the single authoritative parse of an HTML input and
a query/traversal surface over it.

A Bridge owns one parsed document for the lifetime of one extraction
request. Elements are addressed through stable integer NodeIDs issued on
first serialization; text nodes are not addressable. Snapshots are plain
value records that can be copied freely, including across the sandbox
boundary, while scoped queries and traversal against a snapshot's id
always consult the live tree.

Parsing is lenient and never fails; invalid CSS selectors are absorbed
and reported as "no match" because selectors may originate from
untrusted user code.
*/
package dom
