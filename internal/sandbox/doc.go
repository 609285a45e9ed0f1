/*
Package sandbox evaluates user-supplied JavaScript extraction functions
under strict resource limits using the goja engine.

A function receives (api, url) where api exposes the raw page HTML and
a jQuery-like query surface ($, $$, querySelector, querySelectorAll)
returning node proxies. Proxies carry snapshot values (tag, text, html,
attrs, classes) and traversal methods that call synchronously into the
host DOM bridge; the sandbox never holds a live DOM reference and
cannot mutate the host document.

Capabilities withheld: network, filesystem, process access, timers that
schedule work, and global state surviving an invocation. Wall-clock
timeouts are enforced at the engine level with vm.Interrupt from a
watchdog goroutine, so a spinning loop is preempted without cooperation
from user code. The heap budget (Config.MaxMemoryMB) is advisory: goja
offers no hard cap, so the pool bounds concurrent VMs and each VM runs
with a bounded call stack.

Runtimes are pooled; release resets the VM to a fresh global scope.
*/
package sandbox
