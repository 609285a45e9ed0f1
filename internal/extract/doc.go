/*
Package extract applies an extraction scope to a parsed HTML document
and renders the result through the format pipeline.

The engine owns the scope dispatch: main and full use built-in
heuristics over the DOM bridge, selector scopes collect deduplicated
matches with exclusion pruning, function scopes evaluate user code in
the sandbox, and auto/handler scopes resolve through an optional
site-handler lookup. Every extraction emits a resolution record
describing which scope was actually applied.

No operation here performs I/O; callers fetch HTML and persist results
at the boundary.
*/
package extract
