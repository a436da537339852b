package traffic

// Script sums the byte counters of the INPUT (dport) and OUTPUT (sport)
// rules for one port and prints "upload download total". It prints nothing
// when no rule mentions the port yet. A non-empty second argument selects
// ip6tables.
const Script = `#!/usr/bin/env bash
set -u

port="${1:-}"
ipv6="${2:-}"

[[ "$port" =~ ^[0-9]+$ ]] || exit 1

tool=iptables
if [[ -n "$ipv6" ]]; then
  tool=ip6tables
fi

sum_chain() {
  local chain="$1"
  local match="$2"
  "$tool" -nvxL "$chain" 2>/dev/null | grep -w "${match}:${port}" | awk '{ s += $2 } END { if (NR > 0) printf "%d", s }'
}

download="$(sum_chain INPUT dpt)"
upload="$(sum_chain OUTPUT spt)"

if [[ -z "$download" && -z "$upload" ]]; then
  exit 0
fi

download="${download:-0}"
upload="${upload:-0}"
printf '%d %d %d\n' "$upload" "$download" "$((upload + download))"
`
