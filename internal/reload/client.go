package reload

// clientScript runs in the browser. It reconnects after the dev server
// restarts, reloads the page on "reload" and re-fetches stylesheets on
// "inject" whose path ends with the message suffix.
const clientScript = `(function () {
  var delay = 500;
  function refreshStyles(suffix) {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var url = new URL(links[i].href);
      if (suffix && url.pathname.slice(-suffix.length) !== suffix) {
        continue;
      }
      url.searchParams.set("pressify", Date.now().toString());
      links[i].href = url.toString();
    }
  }
  function connect() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "` + SocketPath + `");
    ws.onopen = function () { delay = 500; };
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "inject") {
        refreshStyles(msg.suffix || "");
      } else {
        location.reload();
      }
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 5000);
    };
  }
  connect();
})();
`
