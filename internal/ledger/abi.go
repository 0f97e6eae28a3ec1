package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// 锦标赛合约用到的方法
const tournamentABI = `[
  {"type":"function","name":"setPlayers","stateMutability":"nonpayable",
   "inputs":[{"name":"balances","type":"uint256[]"},{"name":"addresses","type":"address[]"}],
   "outputs":[]},
  {"type":"function","name":"calculateWinners","stateMutability":"nonpayable",
   "inputs":[{"name":"players","type":"string[]"},{"name":"boardCards","type":"string"},{"name":"playerBets","type":"uint256[]"}],
   "outputs":[]},
  {"type":"function","name":"getHandResult","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"playerBalances","type":"uint256[]"},{"name":"handWinnerIndex","type":"uint256"},{"name":"tiePlayers","type":"uint256[]"}]},
  {"type":"function","name":"getPlayers","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"balances","type":"uint256[]"},{"name":"addresses","type":"address[]"}]},
  {"type":"function","name":"getPlayerElimination","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"name":"found","type":"bool"},{"name":"playerIndex","type":"uint256"},{"name":"playerHand","type":"string"},{"name":"opponentHand","type":"string"},{"name":"boardCards","type":"string"}]},
  {"type":"function","name":"getTournamentWinner","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"finished","type":"bool"},{"name":"winner","type":"address"}]}
]`

const (
	methodSetPlayers       = "setPlayers"
	methodCalculateWinners = "calculateWinners"
	methodGetHandResult    = "getHandResult"
	methodGetPlayers       = "getPlayers"
	methodGetElimination   = "getPlayerElimination"
	methodGetWinner        = "getTournamentWinner"
)

var parsedABI = mustParseABI()

func mustParseABI() abi.ABI {
	a, err := abi.JSON(strings.NewReader(tournamentABI))
	if err != nil {
		panic(err)
	}
	return a
}
